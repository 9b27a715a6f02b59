// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import log "github.com/sirupsen/logrus"

// WindowIterator wraps a forward-only EmissionReader and produces a
// sequence of overlapping marker windows on one chromosome at a time.
// It holds the current window, the overlap size used to produce it, a
// one-record lookahead, and the cumulative count of non-overlap
// markers emitted so far.
type WindowIterator struct {
	src        EmissionReader
	window     []Emission
	overlap    int
	lookahead  Emission
	haveLA     bool
	cumMarkers int
}

// NewWindowIterator wraps src. The first AdvanceWindow call seeds the
// first window.
func NewWindowIterator(src EmissionReader) (*WindowIterator, error) {
	w := &WindowIterator{src: src}
	if src.HasNext() {
		e, err := src.Next()
		if err != nil {
			return nil, err
		}
		w.lookahead = e
		w.haveLA = true
	}
	return w, nil
}

// Window returns the current window's emissions.
func (w *WindowIterator) Window() []Emission { return w.window }

// Overlap returns the actual overlap size used to build the current
// window.
func (w *WindowIterator) Overlap() int { return w.overlap }

// CumMarkerCount returns the cumulative number of non-overlap markers
// published across all windows advanced so far.
func (w *WindowIterator) CumMarkerCount() int { return w.cumMarkers }

// LastWindowOnChrom reports whether the current window is the last
// one on its chromosome: true iff there is no lookahead, or the
// lookahead's chromosome differs from the current window's.
func (w *WindowIterator) LastWindowOnChrom() bool {
	if !w.haveLA {
		return true
	}
	if len(w.window) == 0 {
		return false
	}
	return w.lookahead.ChromIndex() != w.window[0].ChromIndex()
}

// CanAdvanceWindow reports whether a lookahead record is available to
// seed another window.
func (w *WindowIterator) CanAdvanceWindow() bool { return w.haveLA }

// AdvanceWindowSize advances the window using a fixed marker-count
// target: the new window is filled to windowSize markers, built from
// up to overlap markers carried over from the tail of the current
// window plus newly read emissions, and then grows past windowSize
// while the next emission shares the last marker's position.
func (w *WindowIterator) AdvanceWindowSize(overlap, windowSize int) error {
	if overlap < 0 || overlap >= windowSize {
		return newConfigError("AdvanceWindowSize: overlap %d must satisfy 0 <= overlap < windowSize (%d)", overlap, windowSize)
	}
	return w.advance(overlap, func(startMapPos float64, size int) bool {
		return size < windowSize
	}, nil)
}

// AdvanceWindowCM advances the window using a genetic-distance
// target: new (non-overlap-seed) emissions are appended while their
// genetic position stays within cM of the new window's first marker
// (the first carried-over overlap marker, when there is one).
func (w *WindowIterator) AdvanceWindowCM(overlap int, cM float64, gm *GeneticMap) error {
	if overlap < 0 {
		return newConfigError("AdvanceWindowCM: overlap must be >= 0, got %d", overlap)
	}
	if cM < 0 {
		return newConfigError("AdvanceWindowCM: cM must be >= 0, got %g", cM)
	}
	return w.advance(overlap, func(startMapPos float64, size int) bool {
		return gm.GenPos(w.lookahead.ChromIndex(), w.lookahead.Pos()) < startMapPos+cM
	}, gm)
}

// advance implements the shared AdvanceWindow* algorithm.
// shouldAppend(startMapPos, currentSize) decides whether the next
// lookahead record extends the "new" portion of the window; it is
// only ever consulted with the chromosome check already satisfied.
func (w *WindowIterator) advance(requestedOverlap int, shouldAppend func(startMapPos float64, size int) bool, gm *GeneticMap) error {
	if !w.CanAdvanceWindow() {
		return newStateError("AdvanceWindow: no lookahead available, cannot advance")
	}

	wasLastOnChrom := w.LastWindowOnChrom()

	actualOverlap := 0
	if len(w.window) > 0 && !wasLastOnChrom {
		actualOverlap = requestedOverlap
		if actualOverlap > len(w.window) {
			actualOverlap = len(w.window)
		}
		// Extend upward while the marker at the overlap boundary
		// ties in (chrom,pos) with the marker just before it:
		// identical-position markers must never be split across
		// windows.
		for actualOverlap < len(w.window) {
			boundary := len(w.window) - actualOverlap
			if boundary == 0 {
				break
			}
			cur := w.window[boundary]
			prev := w.window[boundary-1]
			if cur.ChromIndex() == prev.ChromIndex() && cur.Pos() == prev.Pos() {
				actualOverlap++
			} else {
				break
			}
		}
	}

	newWindow := append([]Emission(nil), w.window[len(w.window)-actualOverlap:]...)
	chrom := w.lookahead.ChromIndex()
	if len(newWindow) > 0 {
		chrom = newWindow[0].ChromIndex()
	}

	var startMapPos float64
	if gm != nil {
		if len(newWindow) > 0 {
			startMapPos = gm.GenPos(chrom, newWindow[0].Pos())
		} else {
			startMapPos = gm.GenPos(chrom, w.lookahead.Pos())
		}
	}

	for w.haveLA && w.lookahead.ChromIndex() == chrom && shouldAppend(startMapPos, len(newWindow)) {
		newWindow = append(newWindow, w.lookahead)
		if err := w.readNext(); err != nil {
			return err
		}
	}
	// Continue appending while the next emission shares the last
	// appended marker's (chrom,pos): identical-position markers
	// must never be split.
	for len(newWindow) > 0 && w.haveLA && w.lookahead.ChromIndex() == newWindow[len(newWindow)-1].ChromIndex() && w.lookahead.Pos() == newWindow[len(newWindow)-1].Pos() {
		newWindow = append(newWindow, w.lookahead)
		if err := w.readNext(); err != nil {
			return err
		}
	}

	added := len(newWindow) - actualOverlap
	w.window = newWindow
	w.overlap = actualOverlap
	w.cumMarkers += added
	log.Debugf("AdvanceWindow: size=%d overlap=%d cumMarkers=%d", len(w.window), w.overlap, w.cumMarkers)
	return nil
}

func (w *WindowIterator) readNext() error {
	if w.src.HasNext() {
		e, err := w.src.Next()
		if err != nil {
			return err
		}
		w.lookahead = e
		w.haveLA = true
	} else {
		w.haveLA = false
	}
	return nil
}
