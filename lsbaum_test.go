// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "gopkg.in/check.v1"

type lsbaumSuite struct{}

var _ = check.Suite(&lsbaumSuite{})

// buildHMMImputationData builds a window with nMarkers biallelic
// markers spaced 1 cM apart, 2 reference samples (4 haplotypes) with
// the given per-haplotype allele sequences, and 1 target sample whose
// two haplotypes are given explicitly. All markers are typed.
func buildHMMImputationData(c *check.C, refHaps [][]int32, targHaps [][]int32, clusterCM float64) *ImputationData {
	nMarkers := len(refHaps[0])
	ms := make([]Marker, nMarkers)
	anchors := make([]mapAnchor, nMarkers)
	for i := range ms {
		pos := (i + 1) * 10
		ms[i], _ = NewMarker(1, pos, []string{"A", "C"})
		anchors[i] = mapAnchor{pos: pos, cM: float64(i + 1)}
	}
	refMarkers := NewMarkers(ms)
	refSamples := NewSamples([]string{"r1", "r2"})
	refAlleles := make([]int32, 4*nMarkers)
	for h, seq := range refHaps {
		copy(refAlleles[h*nMarkers:(h+1)*nMarkers], seq)
	}
	ref, err := NewSampleHapPairs(refSamples, refMarkers, refAlleles)
	c.Assert(err, check.IsNil)

	markerIdx := make([]int, nMarkers)
	for i := range markerIdx {
		markerIdx[i] = i
	}
	targSamples := NewSamples([]string{"t1"})
	targAlleles := make([]int32, 2*nMarkers)
	for h, seq := range targHaps {
		copy(targAlleles[h*nMarkers:(h+1)*nMarkers], seq)
	}
	targ, err := NewSampleHapPairs(targSamples, refMarkers, targAlleles)
	c.Assert(err, check.IsNil)

	cd, err := NewCurrentData(ref, targ, markerIdx, targSamples, 0, 0)
	c.Assert(err, check.IsNil)

	gm, err := NewGeneticMap(map[int][]mapAnchor{1: anchors})
	c.Assert(err, check.IsNil)

	imp, err := BuildImputationData(cd, gm, clusterCM, 1e-4, 1e6)
	c.Assert(err, check.IsNil)
	return imp
}

// TestImputeHaplotypeFavorsExactMatch checks that a target haplotype
// identical to one reference haplotype gets most of its posterior
// allele mass on that haplotype's alleles, at every marker.
func (s *lsbaumSuite) TestImputeHaplotypeFavorsExactMatch(c *check.C) {
	refHaps := [][]int32{
		{0, 0, 0, 0},
		{0, 0, 1, 1},
		{1, 1, 0, 0},
		{1, 1, 1, 1},
	}
	targHaps := [][]int32{
		{0, 0, 0, 0}, // exact match to ref hap 0
		{1, 1, 1, 1}, // exact match to ref hap 3
	}
	imp := buildHMMImputationData(c, refHaps, targHaps, 10.0)
	engine := NewLSHapBaum(imp, false)

	probs := engine.ImputeHaplotype(0)
	markers := imp.Markers()
	for m := 0; m < markers.Len(); m++ {
		base := markers.SumAlleles(m)
		c.Check(probs[base+0] > 0.9, check.Equals, true)
	}

	probs1 := engine.ImputeHaplotype(1)
	for m := 0; m < markers.Len(); m++ {
		base := markers.SumAlleles(m)
		c.Check(probs1[base+1] > 0.9, check.Equals, true)
	}
}

// TestCheckpointBufferMatchesFullBuffer checks that the O(sqrt(C))
// checkpointed forward buffer reproduces the same posterior as the
// full buffer, marker for marker, when there are enough clusters for
// checkpointing to actually replay.
func (s *lsbaumSuite) TestCheckpointBufferMatchesFullBuffer(c *check.C) {
	refHaps := [][]int32{
		{0, 1, 0, 1, 0, 1},
		{1, 0, 1, 0, 1, 0},
		{0, 0, 1, 1, 0, 0},
		{1, 1, 0, 0, 1, 1},
	}
	targHaps := [][]int32{
		{0, 1, 0, 1, 0, 1},
		{1, 1, 0, 0, 1, 1},
	}
	// small clusterCM relative to the 1cM/marker spacing forces
	// multiple (here, per-marker) clusters.
	imp := buildHMMImputationData(c, refHaps, targHaps, 0.5)
	c.Check(imp.NClusters() > 1, check.Equals, true)

	full := NewLSHapBaum(imp, false).ImputeHaplotype(0)
	low := NewLSHapBaum(imp, true).ImputeHaplotype(0)
	c.Assert(len(full), check.Equals, len(low))
	for i := range full {
		c.Check(low[i], check.Equals, full[i])
	}
}

// TestAlleleProbsApproximatelyNormalized checks the projection
// property: at every reference marker the posterior allele
// probabilities sum to approximately 1 (mass below the pruning
// threshold may be dropped, never added).
func (s *lsbaumSuite) TestAlleleProbsApproximatelyNormalized(c *check.C) {
	refHaps := [][]int32{
		{0, 1, 0, 1, 0, 1},
		{1, 0, 1, 0, 1, 0},
		{0, 0, 1, 1, 0, 0},
		{1, 1, 0, 0, 1, 1},
	}
	targHaps := [][]int32{
		{0, 1, 0, 1, 0, 1},
		{1, 1, 0, 0, 1, 1},
	}
	imp := buildHMMImputationData(c, refHaps, targHaps, 0.5)
	probs := NewLSHapBaum(imp, false).ImputeHaplotype(0)
	markers := imp.Markers()
	for m := 0; m < markers.Len(); m++ {
		base := markers.SumAlleles(m)
		sum := probs[base] + probs[base+1]
		c.Check(sum > 0.9, check.Equals, true)
		c.Check(sum < 1.0001, check.Equals, true)
	}
}

// TestMismatchedMarkerStillFollowsReference checks that a single
// mismatching observation does not derail the posterior: with four
// identical reference haplotypes (one distinct sequence), the
// posterior allele at every marker is the reference allele.
func (s *lsbaumSuite) TestMismatchedMarkerStillFollowsReference(c *check.C) {
	refHaps := [][]int32{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	}
	targHaps := [][]int32{
		{0, 0, 1, 0, 0}, // mismatch at the middle marker only
		{0, 0, 0, 0, 0},
	}
	imp := buildHMMImputationData(c, refHaps, targHaps, 0.5)
	probs := NewLSHapBaum(imp, false).ImputeHaplotype(0)
	markers := imp.Markers()
	for m := 0; m < markers.Len(); m++ {
		base := markers.SumAlleles(m)
		c.Check(probs[base] > 0.99, check.Equals, true)
	}
}

func (s *lsbaumSuite) TestNormalizeInPlace(c *check.C) {
	v := []float64{1, 1, 2}
	sum := normalizeInPlace(v)
	c.Check(sum, check.Equals, 4.0)
	c.Check(v[0], check.Equals, 0.25)
	c.Check(v[2], check.Equals, 0.5)

	zero := []float64{0, 0, 0}
	normalizeInPlace(zero)
	c.Check(zero[0], check.Equals, 0.0)
}

func (s *lsbaumSuite) TestCheckpointSpacingGrowsSubLinearly(c *check.C) {
	k100 := checkpointSpacing(100)
	c.Check(k100 > 1, check.Equals, true)
	c.Check(k100 < 100, check.Equals, true)
}
