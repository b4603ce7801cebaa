// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler computes CPU shares and dispatches external per-sample
// jobs with bounded concurrency. All dispatched jobs run to completion before
// Run returns (the join barrier); per-job CPU shares are advisory and passed
// to the external program rather than enforced here.
package scheduler
