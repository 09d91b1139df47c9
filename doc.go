// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package esmscan extracts game-world data — NPCs, quests, dialogue, items,
// cells, terrain, scripts and editor identifiers — from the binary artifacts
// produced by a Gamebryo-family engine targeting a legacy console.
//
// Two byte-source shapes are understood. A structured ESM file (TES4 header,
// nested GRUP groups, main records, subrecords) is parsed by ParseStructured.
// An unstructured process memory dump, where the same record byte patterns
// appear without surrounding group framing, is walked by ScanDump, optionally
// augmented by WalkHashTable when the dump also contains a captured PE module
// image holding the engine's live editor-id hash table.
//
// A single scan is single-threaded and owns its Result exclusively; running
// many scans concurrently over independent byte sources is safe and is what
// ScanAll is for.
package esmscan
