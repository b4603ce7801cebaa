// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package controller composes the batch pipeline as an explicit state
// machine with a join barrier before aggregation and whole-batch rollback of
// non-log artifacts on any failure.
package controller
