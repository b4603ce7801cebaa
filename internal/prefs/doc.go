// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package prefs reads per-sample preference tables and aggregates them into
// an averaged table and a pairwise Pearson correlation matrix.
package prefs
