// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

// asciiFalsePositivePrefixes lists four-character strings known to occur as
// GPU debug-register names inside captured process memory; the dump scanner
// rejects a candidate position outright on a match before attempting any
// record-kind dispatch (§4.4 step 2).
var asciiFalsePositivePrefixes = buildFalsePositiveSet()

func buildFalsePositiveSet() map[[4]byte]struct{} {
	prefixes := []string{
		"VGT_",
		"SX_D",
		"SPI_",
		"CB_C",
		"DB_D",
		"PA_S",
		"TA_C",
	}
	m := make(map[[4]byte]struct{}, len(prefixes)*2)
	for _, p := range prefixes {
		var raw [4]byte
		copy(raw[:], p)
		m[raw] = struct{}{}
		m[reverseSignature(raw)] = struct{}{}
	}
	return m
}

// isFalsePositiveSignature reports whether raw matches a known non-record
// ASCII pattern, in either LE or reversed-for-BE spelling.
func isFalsePositiveSignature(raw [4]byte) bool {
	_, ok := asciiFalsePositivePrefixes[raw]
	return ok
}
