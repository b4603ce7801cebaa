// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobresult validates completed external jobs against their expected
// output artifacts and extracts diagnostic context from a failed job's log.
package jobresult
