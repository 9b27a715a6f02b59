// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "gopkg.in/check.v1"

type markerSuite struct{}

var _ = check.Suite(&markerSuite{})

func (s *markerSuite) TestNewMarkerRejectsTooFewAlleles(c *check.C) {
	_, err := NewMarker(1, 100, []string{"A"})
	c.Check(err, check.NotNil)
	_, ok := err.(*FormatError)
	c.Check(ok, check.Equals, true)
}

func (s *markerSuite) TestNGenotypes(c *check.C) {
	m, err := NewMarker(1, 100, []string{"A", "C"})
	c.Assert(err, check.IsNil)
	c.Check(m.NGenotypes(), check.Equals, 3)

	m3, err := NewMarker(1, 100, []string{"A", "C", "G"})
	c.Assert(err, check.IsNil)
	c.Check(m3.NGenotypes(), check.Equals, 6)
}

func (s *markerSuite) TestGtIndexOrdering(c *check.C) {
	// a2 outer, a1 inner, a1<=a2: (0,0)=0 (0,1)=1 (1,1)=2 (0,2)=3 (1,2)=4 (2,2)=5
	c.Check(GtIndex(0, 0), check.Equals, 0)
	c.Check(GtIndex(0, 1), check.Equals, 1)
	c.Check(GtIndex(1, 0), check.Equals, 1)
	c.Check(GtIndex(1, 1), check.Equals, 2)
	c.Check(GtIndex(0, 2), check.Equals, 3)
	c.Check(GtIndex(1, 2), check.Equals, 4)
	c.Check(GtIndex(2, 2), check.Equals, 5)
}

func (s *markerSuite) TestMarkersSumAlleles(c *check.C) {
	m1, _ := NewMarker(1, 1, []string{"A", "C"})
	m2, _ := NewMarker(1, 2, []string{"A", "C", "G"})
	ms := NewMarkers([]Marker{m1, m2})
	c.Check(ms.SumAlleles(0), check.Equals, 0)
	c.Check(ms.SumAlleles(1), check.Equals, 2)
	c.Check(ms.TotalAlleles(), check.Equals, 5)
}
