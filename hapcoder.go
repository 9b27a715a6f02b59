// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// HapCoder assigns to every haplotype in a marker range a small
// integer code such that two haplotypes share a code iff their allele
// sequences over the range are identical. Reference and target codes
// are drawn from one shared vocabulary: each haplotype's sequence
// over the range is hashed, and the hash looks up (or allocates) a
// code.
type HapCoder struct {
	start, end int
	codeOf     map[[blake2b.Size256]byte]int
	next       int
}

// NewHapCoder prepares a coder for the marker range [start, end).
func NewHapCoder(start, end int) *HapCoder {
	return &HapCoder{start: start, end: end, codeOf: map[[blake2b.Size256]byte]int{}}
}

// CodeRef assigns codes to every reference haplotype, in haplotype
// order, returning one code per haplotype. Called once per segment;
// codes allocated here seed the vocabulary that CodeTarget then
// extends.
func (h *HapCoder) CodeRef(ref SampleHapPairs) []int32 {
	return h.code(ref)
}

// CodeTarget assigns codes to every target haplotype using the
// vocabulary already built by CodeRef (plus any fresh codes needed
// for target sequences matching no reference haplotype).
func (h *HapCoder) CodeTarget(targ SampleHapPairs) []int32 {
	return h.code(targ)
}

// NCodes returns the number of distinct codes allocated so far.
func (h *HapCoder) NCodes() int { return h.next }

func (h *HapCoder) code(hp SampleHapPairs) []int32 {
	n := hp.NHaps()
	out := make([]int32, n)
	buf := make([]byte, 0, h.end-h.start)
	for hap := 0; hap < n; hap++ {
		buf = buf[:0]
		for i := h.start; i < h.end; i++ {
			// allele indices fit in a byte for any realistic
			// multiallelic marker count; fall back to widening
			// via binary.Varint, behind a 0xff escape byte, for
			// the rare allele index >= 255.
			a := hp.Allele(hap, i)
			if a >= 0 && a < 255 {
				buf = append(buf, byte(a))
			} else {
				var wide [binary.MaxVarintLen64]byte
				k := binary.PutVarint(wide[:], int64(a))
				buf = append(append(buf, 0xff), wide[:k]...)
			}
		}
		hash := blake2b.Sum256(buf)
		code, ok := h.codeOf[hash]
		if !ok {
			code = h.next
			h.codeOf[hash] = code
			h.next++
		}
		out[hap] = int32(code)
	}
	return out
}
