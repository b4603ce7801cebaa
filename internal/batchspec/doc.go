// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package batchspec loads and validates the batch description table that
// names the samples to analyse and their input datasets.
package batchspec
