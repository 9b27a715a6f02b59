// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

// Samples is an ordered sequence of unique sample identifiers.
type Samples struct {
	ids []string
}

// NewSamples builds a Samples from an ordered slice of identifiers.
func NewSamples(ids []string) Samples {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return Samples{ids: cp}
}

// Len returns the number of samples.
func (s Samples) Len() int { return len(s.ids) }

// ID returns the identifier of the sample at index i.
func (s Samples) ID(i int) string { return s.ids[i] }

// Equal reports whether two Samples name the same identifiers in the
// same order.
func (s Samples) Equal(other Samples) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for i := range s.ids {
		if s.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

// Exclude returns a new Samples with the named identifiers removed,
// preserving relative order. It is the operation behind the
// excludesamples/excludefromref configuration parameters.
func (s Samples) Exclude(ids []string) Samples {
	if len(ids) == 0 {
		return s
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	return Samples{ids: kept}
}

// Indices returns, for each identifier in s, its index in other, or
// -1 if absent. Used to align a filtered Samples back onto an
// unfiltered SampleHapPairs.
func (s Samples) Indices(other Samples) []int {
	pos := make(map[string]int, other.Len())
	for i, id := range other.ids {
		pos[id] = i
	}
	out := make([]int, s.Len())
	for i, id := range s.ids {
		if j, ok := pos[id]; ok {
			out[i] = j
		} else {
			out[i] = -1
		}
	}
	return out
}

// SampleHapPairs pairs an ordered Samples with an ordered Markers,
// storing for every (sample, marker) pair two phased allele indices.
// Alleles are stored as a flat array indexed by
// hap*nMarkers+markerIndex, where hap = 2*sampleIndex+phase.
type SampleHapPairs struct {
	samples Samples
	markers Markers
	// allele[h*nMarkers+m] is the allele index for haplotype h at
	// marker index m.
	allele []int32
}

// NewSampleHapPairs constructs a SampleHapPairs. allele must have
// length 2*samples.Len()*markers.Len(), laid out as documented on the
// type.
func NewSampleHapPairs(samples Samples, markers Markers, allele []int32) (SampleHapPairs, error) {
	want := 2 * samples.Len() * markers.Len()
	if len(allele) != want {
		return SampleHapPairs{}, newConsistencyError("NewSampleHapPairs: allele array has length %d, want %d (2*%d samples*%d markers)", len(allele), want, samples.Len(), markers.Len())
	}
	return SampleHapPairs{samples: samples, markers: markers, allele: allele}, nil
}

// Samples returns the sample set.
func (p SampleHapPairs) Samples() Samples { return p.samples }

// Markers returns the marker set.
func (p SampleHapPairs) Markers() Markers { return p.markers }

// NHaps returns 2*nSamples, the number of phased haplotypes.
func (p SampleHapPairs) NHaps() int { return 2 * p.samples.Len() }

// NMarkers returns the number of markers.
func (p SampleHapPairs) NMarkers() int { return p.markers.Len() }

// Allele returns the allele index of haplotype hap at marker index m.
func (p SampleHapPairs) Allele(hap, m int) int {
	return int(p.allele[hap*p.markers.Len()+m])
}

// Slice returns a SampleHapPairs restricted to the marker index range
// [start, end), sharing no storage with p.
func (p SampleHapPairs) Slice(start, end int) SampleHapPairs {
	n := end - start
	out := make([]int32, p.NHaps()*n)
	for h := 0; h < p.NHaps(); h++ {
		copy(out[h*n:(h+1)*n], p.allele[h*p.markers.Len()+start:h*p.markers.Len()+end])
	}
	return SampleHapPairs{samples: p.samples, markers: p.markers.Slice(start, end), allele: out}
}

// Restrict returns a SampleHapPairs containing only the haplotypes at
// the given marker indices (which must be increasing, a subsequence
// of p.Markers()), preserving all haplotypes.
func (p SampleHapPairs) Restrict(markerIdx []int) SampleHapPairs {
	ms := make([]Marker, len(markerIdx))
	for i, mi := range markerIdx {
		ms[i] = p.markers.At(mi)
	}
	markers := NewMarkers(ms)
	n := len(markerIdx)
	out := make([]int32, p.NHaps()*n)
	for h := 0; h < p.NHaps(); h++ {
		base := h * p.markers.Len()
		for i, mi := range markerIdx {
			out[h*n+i] = p.allele[base+mi]
		}
	}
	return SampleHapPairs{samples: p.samples, markers: markers, allele: out}
}

// RestrictSamples returns a SampleHapPairs narrowed to the haplotypes
// of the given samples, identified by their index in p.Samples().
func (p SampleHapPairs) RestrictSamples(sampleIdx []int) SampleHapPairs {
	ids := make([]string, len(sampleIdx))
	for i, si := range sampleIdx {
		ids[i] = p.samples.ID(si)
	}
	samples := NewSamples(ids)
	n := p.markers.Len()
	out := make([]int32, 2*len(sampleIdx)*n)
	for i, si := range sampleIdx {
		copy(out[(2*i)*n:(2*i+1)*n], p.allele[(2*si)*n:(2*si+1)*n])
		copy(out[(2*i+1)*n:(2*i+2)*n], p.allele[(2*si+1)*n:(2*si+2)*n])
	}
	return SampleHapPairs{samples: samples, markers: p.markers, allele: out}
}
