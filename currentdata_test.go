// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "gopkg.in/check.v1"

type currentDataSuite struct{}

var _ = check.Suite(&currentDataSuite{})

func (s *currentDataSuite) TestSpliceIndices(c *check.C) {
	// 10 markers, all typed, entered with a 2-marker previous overlap
	// and a 2-marker next overlap: the splice sits in the middle of
	// each overlap region.
	markerIdx := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	cd := newTestCurrentData(c, 10, markerIdx, 2, 2)
	c.Check(cd.PrevSplice(), check.Equals, 1)
	c.Check(cd.NextSplice(), check.Equals, 9)
	c.Check(cd.PrevTargetSplice(), check.Equals, 1)
	c.Check(cd.NextTargetSplice(), check.Equals, 9)
	c.Check(cd.NextTargetOverlap(), check.Equals, 8)
	c.Check(cd.NTargetMarkers(), check.Equals, 10)
}

// TestSpliceTiling covers the splice-idempotence property: two
// consecutive windows sharing a 2-marker overlap emit
// [prevSplice, nextSplice) ranges that cover the chromosome exactly
// once between them.
func (s *currentDataSuite) TestSpliceTiling(c *check.C) {
	markerIdx := []int{0, 1, 2, 3, 4, 5}
	// window 1: markers global [0,6), no previous window, next
	// overlap 2 -> emits global [0, 5).
	cd1 := newTestCurrentData(c, 6, markerIdx, 0, 2)
	c.Check(cd1.PrevSplice(), check.Equals, 0)
	c.Check(cd1.NextSplice(), check.Equals, 5)
	// window 2: markers global [4,10), built with overlap 2, last on
	// chromosome -> emits local [1, 6) = global [5, 10).
	cd2 := newTestCurrentData(c, 6, markerIdx, 2, 0)
	c.Check(cd2.PrevSplice(), check.Equals, 1)
	c.Check(cd2.NextSplice(), check.Equals, 6)
	c.Check(cd2.NextTargetOverlap(), check.Equals, 6)
}

func (s *currentDataSuite) TestPartialTargetSubsequence(c *check.C) {
	// target markers are a strict subsequence of the reference
	// markers; splices in target coordinates follow markerIdx.
	markerIdx := []int{1, 3, 5, 7}
	cd := newTestCurrentData(c, 10, markerIdx, 2, 2)
	c.Check(cd.PrevSplice(), check.Equals, 1)
	c.Check(cd.PrevTargetSplice(), check.Equals, 0) // markerIdx[0]=1 >= 1
	c.Check(cd.NextSplice(), check.Equals, 9)
	c.Check(cd.NextTargetSplice(), check.Equals, 4) // no target marker >= 9
	c.Check(cd.NextTargetOverlap(), check.Equals, 4)

	restricted := cd.RestrictedRefSampleHapPairs()
	c.Check(restricted.NMarkers(), check.Equals, 4)
	c.Check(restricted.Markers().At(0).Equal(cd.Markers().At(1)), check.Equals, true)
	c.Check(restricted.NHaps(), check.Equals, cd.RefSampleHapPairs().NHaps())
}

func (s *currentDataSuite) TestRejectsNonIncreasingMarkerIndices(c *check.C) {
	ms := make([]Marker, 4)
	for i := range ms {
		ms[i], _ = NewMarker(1, (i+1)*10, []string{"A", "C"})
	}
	refMarkers := NewMarkers(ms)
	refSamples := NewSamples([]string{"r1"})
	ref, err := NewSampleHapPairs(refSamples, refMarkers, make([]int32, 2*4))
	c.Assert(err, check.IsNil)
	targMarkers := NewMarkers([]Marker{ms[2], ms[1]})
	targSamples := NewSamples([]string{"t1"})
	targ, err := NewSampleHapPairs(targSamples, targMarkers, make([]int32, 2*2))
	c.Assert(err, check.IsNil)

	_, err = NewCurrentData(ref, targ, []int{2, 1}, targSamples, 0, 0)
	c.Assert(err, check.NotNil)
	_, ok := err.(*ConsistencyError)
	c.Check(ok, check.Equals, true)
}

func (s *currentDataSuite) TestRejectsMarkerCountMismatch(c *check.C) {
	ms := make([]Marker, 4)
	for i := range ms {
		ms[i], _ = NewMarker(1, (i+1)*10, []string{"A", "C"})
	}
	refMarkers := NewMarkers(ms)
	refSamples := NewSamples([]string{"r1"})
	ref, err := NewSampleHapPairs(refSamples, refMarkers, make([]int32, 2*4))
	c.Assert(err, check.IsNil)
	targMarkers := NewMarkers([]Marker{ms[0]})
	targSamples := NewSamples([]string{"t1"})
	targ, err := NewSampleHapPairs(targSamples, targMarkers, make([]int32, 2*1))
	c.Assert(err, check.IsNil)

	_, err = NewCurrentData(ref, targ, []int{0, 2}, targSamples, 0, 0)
	c.Assert(err, check.NotNil)
	_, ok := err.(*ConsistencyError)
	c.Check(ok, check.Equals, true)
}
