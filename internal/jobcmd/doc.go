// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobcmd builds the argument vector for one per-sample analysis
// invocation from a sample row and the resolved run configuration.
package jobcmd
