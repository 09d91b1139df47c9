// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// Form-identifier sentinel values (§3): 0 and 0xFFFFFFFF mean "none".
const (
	formIDSentinelNone = 0x00000000
	formIDSentinelAll  = 0xFFFFFFFF
)

// dumpScanPluginIndexMax is the §4.4/§3 threshold used only by speculative
// dump-scan validators: "Plugin index > 0x0F is suspicious (base content uses
// small indices)".
const dumpScanPluginIndexMax = 0x0F

func isSentinelFormID(id uint32) bool {
	return id == formIDSentinelNone || id == formIDSentinelAll
}

// isASCIICollisionFormID rejects a form id whose four bytes are all printable
// ASCII — §3: "a collision with string data."
func isASCIICollisionFormID(id uint32) bool {
	for i := 0; i < 4; i++ {
		b := byte(id >> (8 * i))
		if b < 0x20 || b > 0x7E {
			return false
		}
	}
	return true
}

// isPlausibleFormIDRef validates a generic form-id reference subrecord (NAME,
// XOWN, ...) per §3's sentinel and ASCII-collision invariants, without the
// stricter plugin-index cap that only applies to dump-scan form-id
// subrecords (§4.4 step 4).
func isPlausibleFormIDRef(id uint32) bool {
	if isSentinelFormID(id) {
		return false
	}
	return !isASCIICollisionFormID(id)
}

// isDumpScanFormIDSubrecordValid implements §4.4 step 4's stricter rule for a
// speculatively-detected form-id subrecord in a memory dump: "requires
// plugin-index ≤ 0x0F and nonzero."
func isDumpScanFormIDSubrecordValid(id uint32) bool {
	if id == formIDSentinelNone {
		return false
	}
	pluginIndex := id >> 24
	if pluginIndex > dumpScanPluginIndexMax {
		return false
	}
	return !isASCIICollisionFormID(id)
}

// isSuspiciousMainRecordFormID implements §4.4's main-record-header-specific
// rule: "form id not sentinel and not all-printable-ASCII; plugin index ≤
// 0xFF" (i.e. any byte value is acceptable for the plugin index at this
// layer — the header is merely not outright nonsensical).
func isSuspiciousMainRecordFormID(id uint32) bool {
	if isSentinelFormID(id) {
		return true
	}
	return isASCIICollisionFormID(id)
}

// isValidEditorID implements the GLOSSARY definition: alphanumeric or
// underscore, starts with a letter, length >= 2, and rejects strings made up
// of a short repeated substring (the hash-table walker's garbage-key filter,
// §4.5 step 4 / S8 property 3).
func isValidEditorID(s string) bool {
	if len(s) < 2 {
		return false
	}
	if !isLetter(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isLetter(c) || isDigit(c) || c == '_') {
			return false
		}
	}
	if hasRepeatedSubstring(s) {
		return false
	}
	return true
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// hasRepeatedSubstring rejects strings dominated by a short repeated pattern
// (e.g. decoding a non-string memory region as if it were an editor id),
// per the GLOSSARY: "no repeated-substring-of-length-2..6 ≥ 3 times."
func hasRepeatedSubstring(s string) bool {
	for length := 2; length <= 6; length++ {
		if len(s) < length*3 {
			continue
		}
		for start := 0; start+length*3 <= len(s); start++ {
			pattern := s[start : start+length]
			count := 1
			pos := start + length
			for pos+length <= len(s) && s[pos:pos+length] == pattern {
				count++
				pos += length
			}
			if count >= 3 {
				return true
			}
		}
	}
	return false
}

// isDumpScanActorBaseStatsValid implements §4.4 step 4's speculative bounds
// check for an actor-base subrecord found outside any enclosing record
// structure: "fatigue ≤ 1000, level ∈ [−128, 255], speed ≤ 500, karma ∈
// [−2, 2]".
func isDumpScanActorBaseStatsValid(s ActorBaseStats) bool {
	if s.Fatigue > 1000 {
		return false
	}
	if int(s.Level) < -128 || int(s.Level) > 255 {
		return false
	}
	if s.SpeedMult > 500 {
		return false
	}
	if s.Karma < -2 || s.Karma > 2 {
		return false
	}
	return true
}

// isExcludedRange reports whether offset falls within any of the caller's
// excluded byte ranges (§4.4: module memory the dump scanner should skip).
func isExcludedRange(offset uint32, ranges []ByteRange) bool {
	for _, r := range ranges {
		if offset >= r.Start && offset < r.End {
			return true
		}
	}
	return false
}

// ByteRange is a half-open [Start, End) span of excluded bytes.
type ByteRange struct {
	Start, End uint32
}

// asciiPrintable reports whether every byte in s is printable ASCII,
// matching the teacher's own IsPrintable helper in spirit.
func asciiPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}
