// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"runtime"

	log "github.com/sirupsen/logrus"
)

// RefHapSeg describes one contiguous reference-marker segment
// [start, end): for every reference haplotype, a compact sequence
// index naming its distinct allele sequence over the segment, plus
// the allele matrix of each distinct sequence's alleles at each
// marker in the segment.
type RefHapSeg struct {
	Start, End int // reference-marker index range [Start, End)

	// seqOf[hap] is the sequence index of reference haplotype hap.
	seqOf []int32

	// allele[seq*(End-Start)+(m-Start)] is the allele of sequence
	// seq at reference-marker index m.
	allele []int32
	nSeq   int
}

// NSeq returns the number of distinct allele sequences in the
// segment.
func (s *RefHapSeg) NSeq() int { return s.nSeq }

// Seq returns the sequence index of reference haplotype hap.
func (s *RefHapSeg) Seq(hap int) int { return int(s.seqOf[hap]) }

// Allele returns the allele of sequence seq at reference-marker index
// m (Start <= m < End).
func (s *RefHapSeg) Allele(m, seq int) int {
	return int(s.allele[seq*(s.End-s.Start)+(m-s.Start)])
}

// buildRefHapSeg computes the distinct-sequence vocabulary and allele
// matrix for reference haplotypes over [start, end), reusing HapCoder
// for the dedupe-by-hash step.
func buildRefHapSeg(ref SampleHapPairs, start, end int) *RefHapSeg {
	coder := NewHapCoder(start, end)
	seqOf := coder.CodeRef(ref)
	nSeq := coder.NCodes()
	width := end - start
	allele := make([]int32, nSeq*width)
	filled := make([]bool, nSeq)
	for hap, seq := range seqOf {
		if filled[seq] {
			continue
		}
		filled[seq] = true
		for m := start; m < end; m++ {
			allele[int(seq)*width+(m-start)] = int32(ref.Allele(hap, m))
		}
	}
	return &RefHapSeg{Start: start, End: end, seqOf: seqOf, allele: allele, nSeq: nSeq}
}

// RefHapSegs is the sequence of RefHapSeg for one window, indexed
// 0..nClusters inclusive (one extra boundary segment at each end):
// segment 0 spans [0, clusterEnd(0)); segment
// j in 1..nClusters-1 spans [clusterStart(j-1), clusterEnd(j)); the
// final segment spans [clusterStart(nClusters-1), nRefMarkers).
type RefHapSegs struct {
	segs         []*RefHapSeg
	clusterStart []int
	clusterEnd   []int
}

// BuildRefHapSegs constructs the (nClusters+1)-long RefHapSegs for
// ref, given per-target-derived cluster boundaries in reference-marker
// coordinates. Construction is parallelized across segments; each
// segment's build is pure and deposits into its own slot.
func BuildRefHapSegs(ref SampleHapPairs, clusterStart, clusterEnd []int) (*RefHapSegs, error) {
	nClusters := len(clusterStart)
	if nClusters == 0 {
		return nil, newConsistencyError("BuildRefHapSegs: no clusters")
	}
	if len(clusterEnd) != nClusters {
		return nil, newConsistencyError("BuildRefHapSegs: clusterStart/clusterEnd length mismatch")
	}
	nRefMarkers := ref.NMarkers()

	bounds := make([][2]int, nClusters+1)
	bounds[0] = [2]int{0, clusterEnd[0]}
	for j := 1; j < nClusters; j++ {
		bounds[j] = [2]int{clusterStart[j-1], clusterEnd[j]}
	}
	bounds[nClusters] = [2]int{clusterStart[nClusters-1], nRefMarkers}

	log.Debugf("BuildRefHapSegs: building %d segments over %d reference markers", nClusters+1, nRefMarkers)
	segs := make([]*RefHapSeg, nClusters+1)
	th := throttle{Max: runtime.NumCPU()}
	for i, b := range bounds {
		i, b := i, b
		th.Acquire()
		go func() {
			defer th.Release()
			segs[i] = buildRefHapSeg(ref, b[0], b[1])
		}()
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}
	return &RefHapSegs{segs: segs, clusterStart: append([]int(nil), clusterStart...), clusterEnd: append([]int(nil), clusterEnd...)}, nil
}

// ClusterStart returns clusterStart(j) in reference-marker
// coordinates.
func (r *RefHapSegs) ClusterStart(j int) int { return r.clusterStart[j] }

// ClusterEnd returns clusterEnd(j) in reference-marker coordinates.
func (r *RefHapSegs) ClusterEnd(j int) int { return r.clusterEnd[j] }

// NClusters returns the number of clusters (len(segs)-1).
func (r *RefHapSegs) NClusters() int { return len(r.segs) - 1 }

// NSeq returns the number of distinct sequences in the given segment;
// segment ranges over the inclusive [0, NClusters()].
func (r *RefHapSegs) NSeq(segment int) int { return r.segs[segment].NSeq() }

// Seq returns the sequence index of reference haplotype hap in the
// given segment.
func (r *RefHapSegs) Seq(segment, hap int) int { return r.segs[segment].Seq(hap) }

// Allele returns the allele of sequence seq at reference-marker index
// m within the given segment.
func (r *RefHapSegs) Allele(segment, m, seq int) int { return r.segs[segment].Allele(m, seq) }

// Segment returns the underlying RefHapSeg, e.g. for its Start/End
// bounds.
func (r *RefHapSegs) Segment(segment int) *RefHapSeg { return r.segs[segment] }
