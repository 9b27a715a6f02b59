// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "gopkg.in/check.v1"

type refHapSegsSuite struct{}

var _ = check.Suite(&refHapSegsSuite{})

func (s *refHapSegsSuite) TestSegmentBounds(c *check.C) {
	ref := buildHapPairs(c, []string{"r1", "r2"}, 6, [][]int32{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 0, 0},
		{1, 1, 0, 0, 1, 1},
		{1, 1, 1, 1, 1, 1},
	})
	// two clusters at reference markers [1,3) and [3,5): three
	// segments, overlapping each cluster by one cluster on each side.
	clusterStart := []int{1, 3}
	clusterEnd := []int{3, 5}
	segs, err := BuildRefHapSegs(ref, clusterStart, clusterEnd)
	c.Assert(err, check.IsNil)
	c.Check(segs.NClusters(), check.Equals, 2)

	c.Check(segs.Segment(0).Start, check.Equals, 0)
	c.Check(segs.Segment(0).End, check.Equals, 3) // [0, clusterEnd(0))
	c.Check(segs.Segment(1).Start, check.Equals, 1)
	c.Check(segs.Segment(1).End, check.Equals, 5) // [clusterStart(0), clusterEnd(1))
	c.Check(segs.Segment(2).Start, check.Equals, 3)
	c.Check(segs.Segment(2).End, check.Equals, 6) // [clusterStart(1), nRefMarkers)
}

func (s *refHapSegsSuite) TestSeqAndAlleleRoundTrip(c *check.C) {
	haps := [][]int32{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 0, 0},
		{1, 1, 0, 0, 1, 1},
		{0, 0, 1, 1, 0, 0},
	}
	ref := buildHapPairs(c, []string{"r1", "r2"}, 6, haps)
	segs, err := BuildRefHapSegs(ref, []int{1, 3}, []int{3, 5})
	c.Assert(err, check.IsNil)

	// every haplotype's alleles must be recoverable through its
	// sequence index, in every segment.
	for segment := 0; segment <= segs.NClusters(); segment++ {
		seg := segs.Segment(segment)
		for hap := 0; hap < 4; hap++ {
			seq := segs.Seq(segment, hap)
			c.Check(seq < segs.NSeq(segment), check.Equals, true)
			for m := seg.Start; m < seg.End; m++ {
				c.Check(segs.Allele(segment, m, seq), check.Equals, int(haps[hap][m]))
			}
		}
	}

	// haps 1 and 3 are identical everywhere, so they share a sequence
	// index in every segment.
	for segment := 0; segment <= segs.NClusters(); segment++ {
		c.Check(segs.Seq(segment, 1), check.Equals, segs.Seq(segment, 3))
	}
}

func (s *refHapSegsSuite) TestRejectsEmptyClusters(c *check.C) {
	ref := buildHapPairs(c, []string{"r1"}, 3, [][]int32{{0, 0, 0}, {1, 1, 1}})
	_, err := BuildRefHapSegs(ref, nil, nil)
	c.Assert(err, check.NotNil)
	_, ok := err.(*ConsistencyError)
	c.Check(ok, check.Equals, true)
}
