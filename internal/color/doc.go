// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color colourizes strings with ANSI escape codes for the console
// log handler. Colour output is decided once at startup: the NO_COLOR
// environment variable disables it, FORCE_COLOR forces it on, and otherwise
// it is enabled only when stdout is a terminal.
package color
