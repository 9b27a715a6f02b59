// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "fmt"

// Marker is an immutable description of one genomic site: a stable
// chromosome index, a one-based position, and the list of alleles
// observed there, the first of which is the reference allele.
type Marker struct {
	Chrom   int
	Pos     int
	Alleles []string
}

// NewMarker validates and constructs a Marker. A marker must name at
// least two alleles.
func NewMarker(chrom, pos int, alleles []string) (Marker, error) {
	if len(alleles) < 2 {
		return Marker{}, newFormatError("marker at chrom=%d pos=%d has %d allele(s), need >= 2", chrom, pos, len(alleles))
	}
	cp := make([]string, len(alleles))
	copy(cp, alleles)
	return Marker{Chrom: chrom, Pos: pos, Alleles: cp}, nil
}

// NAlleles returns the number of distinct alleles at the marker.
func (m Marker) NAlleles() int { return len(m.Alleles) }

// NGenotypes returns nAlleles*(nAlleles+1)/2, the number of ordered
// genotypes (a1 <= a2) at the marker.
func (m Marker) NGenotypes() int {
	n := m.NAlleles()
	return n * (n + 1) / 2
}

// Equal reports whether two markers have identical chromosome,
// position and allele lists.
func (m Marker) Equal(other Marker) bool {
	if m.Chrom != other.Chrom || m.Pos != other.Pos || len(m.Alleles) != len(other.Alleles) {
		return false
	}
	for i := range m.Alleles {
		if m.Alleles[i] != other.Alleles[i] {
			return false
		}
	}
	return true
}

func (m Marker) String() string {
	return fmt.Sprintf("%d:%d:%v", m.Chrom, m.Pos, m.Alleles)
}

// GtIndex maps an ordered pair of allele indices (a1 <= a2) to its
// position in the standard VCF genotype-likelihood ordering: outer
// loop over a2, inner loop over a1 <= a2.
func GtIndex(a1, a2 int) int {
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	return a2*(a2+1)/2 + a1
}

// Markers is an ordered, immutable sequence of Marker.
type Markers struct {
	list    []Marker
	cumSum  []int // cumSum[i] = sumAlleles(i), length len(list)+1
}

// NewMarkers builds a Markers from an ordered slice. The slice is
// copied; later mutation of the caller's slice has no effect.
func NewMarkers(markers []Marker) Markers {
	list := make([]Marker, len(markers))
	copy(list, markers)
	cumSum := make([]int, len(list)+1)
	for i, m := range list {
		cumSum[i+1] = cumSum[i] + m.NAlleles()
	}
	return Markers{list: list, cumSum: cumSum}
}

// Len returns the number of markers.
func (ms Markers) Len() int { return len(ms.list) }

// At returns the marker at index i.
func (ms Markers) At(i int) Marker { return ms.list[i] }

// Slice returns the markers in [start, end) as a fresh Markers.
func (ms Markers) Slice(start, end int) Markers {
	return NewMarkers(ms.list[start:end])
}

// SumAlleles returns the sum of NAlleles() over markers with index <
// m; this is the base offset into an allele-indexed array for marker
// m's first allele. SumAlleles(Len()) is the total allele count.
func (ms Markers) SumAlleles(m int) int { return ms.cumSum[m] }

// TotalAlleles returns SumAlleles(Len()).
func (ms Markers) TotalAlleles() int { return ms.cumSum[len(ms.cumSum)-1] }

// IndexOfPos returns the index of the first marker with the given
// chromosome and position, or -1 if none matches. Markers are
// expected to be sorted by position within a chromosome, so this is a
// linear scan suitable only for small windows; callers processing
// whole chromosomes should track indices themselves.
func (ms Markers) IndexOfPos(chrom, pos int) int {
	for i, m := range ms.list {
		if m.Chrom == chrom && m.Pos == pos {
			return i
		}
	}
	return -1
}
