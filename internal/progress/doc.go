// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress provides real-time progress reporting for external job
// execution. The worker pool emits events as jobs are dispatched, started
// and finished, and the controller forwards them to the run log.
package progress
