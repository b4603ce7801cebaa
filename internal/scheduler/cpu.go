// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"fmt"
	"runtime"
)

// AllCores is the sentinel CPU-count request meaning "use every available core".
const AllCores = -1

// ErrCPUCount is returned when the requested CPU count is neither the
// all-cores sentinel nor a positive integer.
var ErrCPUCount = fmt.Errorf(
	"ncpus must be %d (all available cores) or a positive integer", AllCores)

// NumCPU reports the number of available cores. It is a variable so tests can
// stub it.
var NumCPU = runtime.NumCPU

// ResolveCPUs resolves a total CPU budget request against the available
// cores. AllCores means all of them; a positive request is capped at the
// available count; anything else is a configuration error.
func ResolveCPUs(requested int) (int, error) {
	available := NumCPU()

	switch {
	case requested == AllCores:
		return available, nil
	case requested > 0:
		return min(requested, available), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrCPUCount, requested)
	}
}

// CPUShare computes the advisory per-job CPU share for a batch:
// max(1, totalCPUs/samples).
func CPUShare(totalCPUs, samples int) int {
	if samples < 1 {
		return 1
	}

	return max(1, totalCPUs/samples)
}
