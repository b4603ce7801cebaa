// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package render delegates correlation heatmap drawing to an external plot
// program.
package render
