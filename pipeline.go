// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"context"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// IbdSource supplies raw IBD/HBD segments for the current window,
// keyed by haplotype pair, in target-marker-index coordinates. The
// detector producing these is an external collaborator; the driver
// only threads its output through the splice-merge logic in
// Writer.PrintIbd.
type IbdSource interface {
	Segments(cd *CurrentData) map[HapPairKey]IbdSegment
}

// ChromosomeInput bundles one chromosome's full reference and target
// haplotype data, already assembled from whatever external source
// (VCF parsing is out of scope). Target markers must be a subsequence
// of reference markers.
type ChromosomeInput struct {
	Chrom int
	Ref   SampleHapPairs
	Targ  SampleHapPairs
}

// emissionsFromRef adapts a chromosome's reference SampleHapPairs
// into the GenotypeEmission stream the window iterator consumes.
func emissionsFromRef(ref SampleHapPairs) []Emission {
	nHaps := ref.NHaps()
	markers := ref.Markers()
	out := make([]Emission, markers.Len())
	for m := 0; m < markers.Len(); m++ {
		alleles := make([]int32, nHaps)
		for h := 0; h < nHaps; h++ {
			alleles[h] = int32(ref.Allele(h, m))
		}
		out[m] = &GenotypeEmission{M: markers.At(m), Alleles: alleles}
	}
	return out
}

// RunChromosome drives one chromosome to completion: it advances
// windows, builds the per-window CurrentData/ImputationData/
// RefHapSegs bundle, fans the Li-Stephens engine out across target
// haplotypes, combines the per-haplotype results deterministically,
// computes Gprobs statistics, and writes VCF and IBD/HBD output. A
// cancellation check happens at each window boundary.
func RunChromosome(ctx context.Context, cfg Config, in ChromosomeInput, gm *GeneticMap, ibd IbdSource, w *Writer) error {
	ref, targ := in.Ref, in.Targ
	if len(cfg.ExcludeFromRef) > 0 {
		kept := ref.Samples().Exclude(cfg.ExcludeFromRef)
		ref = ref.RestrictSamples(kept.Indices(ref.Samples()))
	}
	if len(cfg.ExcludeSamples) > 0 {
		kept := targ.Samples().Exclude(cfg.ExcludeSamples)
		targ = targ.RestrictSamples(kept.Indices(targ.Samples()))
	}

	reader := NewSliceEmissionReader(ref.Samples(), "", emissionsFromRef(ref))
	wi, err := NewWindowIterator(reader)
	if err != nil {
		return err
	}

	targMarkers := targ.Markers()
	nextTargFrom := 0 // first not-yet-consumed target-marker index, by position order

	for wi.CanAdvanceWindow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if cfg.WindowByMarkerCount {
			if err := wi.AdvanceWindowSize(cfg.Overlap, cfg.WindowMarkers); err != nil {
				return err
			}
		} else {
			if err := wi.AdvanceWindowCM(cfg.Overlap, cfg.Window, gm); err != nil {
				return err
			}
		}
		nextOverlap := cfg.Overlap
		if wi.LastWindowOnChrom() {
			nextOverlap = 0
		}

		window := wi.Window()
		if len(window) == 0 {
			continue
		}
		refMarkers := make([]Marker, len(window))
		for i, e := range window {
			refMarkers[i] = e.Marker()
		}
		winMarkers := NewMarkers(refMarkers)

		// Locate the window's marker range within ref by position, and
		// the target markers whose positions fall in that range.
		startIdx := ref.Markers().IndexOfPos(winMarkers.At(0).Chrom, winMarkers.At(0).Pos)
		if startIdx < 0 {
			return newConsistencyError("RunChromosome: window start marker not found in reference markers")
		}
		endIdx := startIdx + winMarkers.Len()
		refWin := ref.Slice(startIdx, endIdx)

		// Target markers in the next overlap belong to this window
		// and the next one, so only indices before the overlap start
		// are consumed here; the rest are re-found when the following
		// window is scanned.
		winTargStart := nextTargFrom
		scan := winTargStart
		var markerIdx []int
		for scan < targMarkers.Len() {
			tm := targMarkers.At(scan)
			if tm.Chrom != winMarkers.At(0).Chrom {
				break
			}
			ri := winMarkers.IndexOfPos(tm.Chrom, tm.Pos)
			if ri < 0 {
				break
			}
			markerIdx = append(markerIdx, ri)
			scan++
		}
		if len(markerIdx) == 0 {
			nextTargFrom = scan
			continue
		}
		targWin := targ.Slice(winTargStart, scan)

		cd, err := NewCurrentData(refWin, targWin, markerIdx, targ.Samples(), wi.Overlap(), nextOverlap)
		if err != nil {
			return err
		}
		nextTargFrom = winTargStart + cd.NextTargetOverlap()

		log.Debugf("RunChromosome: chrom=%d window markers=%d target markers=%d overlap=%d",
			in.Chrom, winMarkers.Len(), len(markerIdx), wi.Overlap())

		impData, err := BuildImputationData(cd, gm, cfg.Cluster, cfg.Err, cfg.Ne)
		if err != nil {
			return err
		}

		nHaps := cd.TargetSampleHapPairs().NHaps()
		results := make([][]float64, nHaps)
		nThreads := cfg.NThreads
		if nThreads < 1 {
			nThreads = runtime.NumCPU()
		}
		th := throttle{Max: nThreads}
		for h := 0; h < nHaps; h++ {
			h := h
			th.Acquire()
			go func() {
				defer th.Release()
				engine := NewLSHapBaum(impData, cfg.LowMem)
				results[h] = engine.ImputeHaplotype(h)
			}()
		}
		if err := th.Wait(); err != nil {
			return err
		}

		records := buildMarkerRecords(cd, results)
		if err := w.Print(cd, records, cfg.Impute); err != nil {
			return err
		}
		if ibd != nil {
			segs := ibd.Segments(cd)
			if err := w.PrintIbd(cd, segs, targ.Samples(), in.Chrom); err != nil {
				return err
			}
		}
		log.Debugf("RunChromosome: chrom=%d window flushed, cumMarkers=%d", in.Chrom, wi.CumMarkerCount())
	}
	if ibd != nil {
		// Segments still buffered when the chromosome ends are
		// terminal: no later window can extend them.
		if err := w.FlushIbd(targ.Samples(), in.Chrom); err != nil {
			return err
		}
	}
	return nil
}

// buildMarkerRecords reduces the combined per-haplotype allele
// probabilities into VCF-ready records, one per reference marker in
// the window, computing AR2/DR2/HWE via MarkerStatsAccumulator, AF
// from the summed haplotype allele probabilities, and GT/DS/GP per
// sample via combineDiploid.
func buildMarkerRecords(cd *CurrentData, hapProbs [][]float64) []MarkerRecord {
	markers := cd.Markers()
	nHaps := len(hapProbs)
	nSamples := nHaps / 2
	typed := make(map[int]bool, len(cd.MarkerIndices()))
	for _, mi := range cd.MarkerIndices() {
		typed[mi] = true
	}

	out := make([]MarkerRecord, markers.Len())
	for m := 0; m < markers.Len(); m++ {
		marker := markers.At(m)
		base := markers.SumAlleles(m)
		na := marker.NAlleles()

		acc := &MarkerStatsAccumulator{}
		afSum := make([]float64, na)
		calls := make([]SampleCall, nSamples)
		for s := 0; s < nSamples; s++ {
			h0, h1 := hapProbs[2*s][base:base+na], hapProbs[2*s+1][base:base+na]
			for a := 0; a < na; a++ {
				afSum[a] += h0[a] + h1[a]
			}
			gtProb, dose := combineDiploid(h0, h1, na)
			acc.Add(ReduceGenotypeProbs(marker, gtProb))
			calls[s] = SampleCall{
				A1:     argmax(h0),
				A2:     argmax(h1),
				Phased: true,
				Dose:   dose,
				GP:     gtProb,
			}
		}

		af := make([]float64, na-1)
		for a := 1; a < na; a++ {
			af[a-1] = afSum[a] / float64(2*nSamples)
		}

		out[m] = MarkerRecord{
			Marker: marker,
			AF:     af,
			AR2:    acc.AllelicR2(),
			DR2:    acc.DoseR2(),
			HWE:    acc.HwePValue(),
			Calls:  calls,
			Typed:  typed[m],
		}
	}
	return out
}

// combineDiploid forms the joint unordered-genotype probability
// vector and expected ALT dose for a sample from its two haplotypes'
// independent allele-probability vectors.
func combineDiploid(h0, h1 []float64, na int) ([]float64, float64) {
	n := na * (na + 1) / 2
	gtProb := make([]float64, n)
	for a := 0; a < na; a++ {
		for b := 0; b < na; b++ {
			gtProb[GtIndex(a, b)] += h0[a] * h1[b]
		}
	}
	var dose float64
	for a := 1; a < na; a++ {
		dose += h0[a] + h1[a]
	}
	return gtProb, dose
}

func argmax(p []float64) int {
	best, bestP := 0, p[0]
	for i := 1; i < len(p); i++ {
		if p[i] > bestP {
			best, bestP = i, p[i]
		}
	}
	return best
}
