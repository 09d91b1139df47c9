// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "github.com/pkg/errors"

// Errors returned to the caller: outer-framing failures of a structured span,
// cancellation, and the hash-table walker's module/table lookup failures.
// Record-local problems are never returned; they go to Result.Diagnostics.
var (
	// ErrTooSmall is returned when a structured byte span is shorter than one
	// 24-byte record header (minStructuredSpan).
	ErrTooSmall = errors.New("esmscan: byte span too small to be a structured ESM")

	// ErrUnknownEndian is returned when the first four bytes of a structured
	// span match neither the canonical nor the reversed TES4 signature.
	ErrUnknownEndian = errors.New("esmscan: cannot detect endianness, no TES4 signature found")

	// ErrCancelled is returned when the caller's cancellation signal fired
	// mid-scan.
	ErrCancelled = errors.New("esmscan: scan cancelled")

	// ErrSourceRead is wrapped around any I/O failure from a ByteSource.
	ErrSourceRead = errors.New("esmscan: byte source read failed")

	// ErrModuleNotFound is returned by the hash-table walker when the
	// collaborator-supplied module locator cannot find the game executable
	// in the captured regions.
	ErrModuleNotFound = errors.New("esmscan: game module not found in captured memory")

	// ErrHashTableNotFound is returned when the triple-pointer scan completes
	// without finding a validated hash-table candidate in any section.
	ErrHashTableNotFound = errors.New("esmscan: no validated hash table candidate found")
)
