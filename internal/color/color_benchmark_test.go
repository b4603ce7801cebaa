// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"testing"
)

func BenchmarkColorize(b *testing.B) {
	original := enabled
	defer func() { enabled = original }()

	enabled = true

	b.ResetTimer()

	for b.Loop() {
		Colorize("job completed", FgHiWhite)
	}
}
