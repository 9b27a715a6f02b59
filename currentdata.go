// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

// CurrentData is the per-window bundle built from a WindowIterator's
// current window: it fixes the reference markers, target markers,
// sample sets and splice indices that divide the window into a
// "previous splice" (already finalized by the previous window), an
// "own" region, and a "next splice" overlap (to be finalized by the
// next window).
type CurrentData struct {
	markers Markers
	samples Samples // reference samples

	refHapPairs   SampleHapPairs
	targHapPairs  SampleHapPairs
	targetSamples Samples

	// markerIdx[i] is the reference-marker index of target-marker i.
	markerIdx []int

	prevSplice, nextSplice             int
	prevTargetSplice, nextTargetSplice int
	nextTargetOverlap                  int
}

// NewCurrentData constructs a CurrentData from the current window's
// reference data and the target subset. markerIdx must be strictly
// increasing and index into [0, refHapPairs.NMarkers()); it identifies
// which reference markers are also target markers. prevOverlap is the overlap
// WindowIterator used to build the current window (its Overlap()
// value); nextOverlap is the overlap that will be requested to build
// the following window (0 if this is the last window on the
// chromosome).
func NewCurrentData(refHapPairs SampleHapPairs, targHapPairs SampleHapPairs, markerIdx []int, targetSamples Samples, prevOverlap, nextOverlap int) (*CurrentData, error) {
	markers := refHapPairs.Markers()
	for i := 1; i < len(markerIdx); i++ {
		if markerIdx[i] <= markerIdx[i-1] {
			return nil, newConsistencyError("NewCurrentData: markerIndices not strictly increasing at %d", i)
		}
	}
	if len(markerIdx) > 0 && (markerIdx[0] < 0 || markerIdx[len(markerIdx)-1] >= markers.Len()) {
		return nil, newConsistencyError("NewCurrentData: markerIndices out of range")
	}
	if targHapPairs.NMarkers() != len(markerIdx) {
		return nil, newConsistencyError("NewCurrentData: targHapPairs has %d markers, markerIndices has %d", targHapPairs.NMarkers(), len(markerIdx))
	}
	if prevOverlap < 0 || prevOverlap > markers.Len() {
		return nil, newConsistencyError("NewCurrentData: prevOverlap %d out of range [0,%d]", prevOverlap, markers.Len())
	}
	if nextOverlap < 0 || nextOverlap > markers.Len() {
		return nil, newConsistencyError("NewCurrentData: nextOverlap %d out of range [0,%d]", nextOverlap, markers.Len())
	}

	// The splice point sits in the middle of each overlap region, so
	// that consecutive windows' [prevSplice, nextSplice) ranges tile
	// the chromosome exactly: this window stops emitting halfway into
	// the next overlap, and the next window (whose markers begin at
	// the overlap start) picks up at the same marker.
	prevSplice := prevOverlap / 2
	nextSplice := markers.Len() - nextOverlap + nextOverlap/2

	prevTargetSplice := firstIndexAtLeast(markerIdx, prevSplice)
	nextTargetSplice := firstIndexAtLeast(markerIdx, nextSplice)
	nextTargetOverlap := firstIndexAtLeast(markerIdx, markers.Len()-nextOverlap)

	return &CurrentData{
		markers:           markers,
		samples:           refHapPairs.Samples(),
		refHapPairs:       refHapPairs,
		targHapPairs:      targHapPairs,
		targetSamples:     targetSamples,
		markerIdx:         append([]int(nil), markerIdx...),
		prevSplice:        prevSplice,
		nextSplice:        nextSplice,
		prevTargetSplice:  prevTargetSplice,
		nextTargetSplice:  nextTargetSplice,
		nextTargetOverlap: nextTargetOverlap,
	}, nil
}

func firstIndexAtLeast(sorted []int, v int) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (cd *CurrentData) PrevSplice() int { return cd.prevSplice }
func (cd *CurrentData) NextSplice() int { return cd.nextSplice }
func (cd *CurrentData) PrevTargetSplice() int { return cd.prevTargetSplice }
func (cd *CurrentData) NextTargetSplice() int { return cd.nextTargetSplice }

// NextTargetOverlap returns the index of the first target marker
// inside the next window's overlap region. A segment starting at or
// after it is seen whole by the next window and need not be buffered.
func (cd *CurrentData) NextTargetOverlap() int { return cd.nextTargetOverlap }
func (cd *CurrentData) Markers() Markers { return cd.markers }
func (cd *CurrentData) TargetMarkers() Markers { return cd.targHapPairs.Markers() }
func (cd *CurrentData) NTargetMarkers() int { return len(cd.markerIdx) }
func (cd *CurrentData) MarkerIndices() []int { return cd.markerIdx }
func (cd *CurrentData) TargetSamples() Samples { return cd.targetSamples }
func (cd *CurrentData) RefSampleHapPairs() SampleHapPairs { return cd.refHapPairs }
func (cd *CurrentData) TargetSampleHapPairs() SampleHapPairs { return cd.targHapPairs }

// RestrictedRefSampleHapPairs returns the reference haplotypes
// restricted to the target markers, aligned on cd.TargetMarkers().
func (cd *CurrentData) RestrictedRefSampleHapPairs() SampleHapPairs {
	return cd.refHapPairs.Restrict(cd.markerIdx)
}
