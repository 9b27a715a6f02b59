// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// forwardBuffer stores the forward-recurrence columns f_0..f_{C-1}
// (one []float64 of length n per cluster) produced during the
// forward pass, and makes them available again during the backward
// sweep. A full buffer keeps every column; a checkpointed buffer
// keeps only a sqrt(C)-spaced subset and re-derives the rest on
// demand, trading CPU for memory.
type forwardBuffer interface {
	// set stores column c (copying v).
	set(c int, v []float64)
	// get returns column c, materializing it from nearby
	// checkpoints if necessary via recurrence, which computes
	// column i from column i-1.
	get(c int, recurrence func(prev []float64, i int, out []float64)) []float64
}

// fullForwardBuffer retains every forward column; used when
// Config.LowMem is false.
type fullForwardBuffer struct {
	cols [][]float64
}

func newFullForwardBuffer(c int) *fullForwardBuffer {
	return &fullForwardBuffer{cols: make([][]float64, c)}
}

func (b *fullForwardBuffer) set(c int, v []float64) {
	b.cols[c] = append([]float64(nil), v...)
}

func (b *fullForwardBuffer) get(c int, recurrence func(prev []float64, i int, out []float64)) []float64 {
	return b.cols[c]
}

// checkpointForwardBuffer retains only every spacing-th forward
// column (plus column 0), giving O(sqrt(C)*n) memory. Missing columns
// are re-derived by replaying the forward recurrence from the
// nearest earlier checkpoint. The backward sweep visits clusters in
// strictly decreasing order, so the materialized run it builds on one
// get() is reused by every subsequent get() within the same
// checkpoint block.
type checkpointForwardBuffer struct {
	n              int
	spacing        int
	checkpoint     map[int][]float64 // cluster index -> forward column, at multiples of spacing and at 0
	materialized   [][]float64       // contiguous run rebuilt from the nearest checkpoint
	materializedLo int               // cluster index of materialized[0]
}

func newCheckpointForwardBuffer(n, spacing int) *checkpointForwardBuffer {
	if spacing < 1 {
		spacing = 1
	}
	return &checkpointForwardBuffer{n: n, spacing: spacing, checkpoint: map[int][]float64{}}
}

func (b *checkpointForwardBuffer) set(c int, v []float64) {
	if c == 0 || c%b.spacing == 0 {
		b.checkpoint[c] = append([]float64(nil), v...)
	}
}

func (b *checkpointForwardBuffer) get(c int, recurrence func(prev []float64, i int, out []float64)) []float64 {
	if v, ok := b.checkpoint[c]; ok {
		return v
	}
	if b.materialized != nil && c >= b.materializedLo && c-b.materializedLo < len(b.materialized) {
		return b.materialized[c-b.materializedLo]
	}
	lo := (c / b.spacing) * b.spacing
	for lo > 0 {
		if _, ok := b.checkpoint[lo]; ok {
			break
		}
		lo -= b.spacing
	}
	prev, ok := b.checkpoint[lo]
	if !ok {
		prev, lo = b.checkpoint[0], 0
	}
	run := make([][]float64, c-lo+1)
	run[0] = prev
	for i := lo + 1; i <= c; i++ {
		out := make([]float64, b.n)
		recurrence(run[i-1-lo], i, out)
		run[i-lo] = out
	}
	b.materialized = run
	b.materializedLo = lo
	return run[c-lo]
}

// checkpointSpacing returns K = ceil(sqrt(1+8C)/2) + 1, which bounds
// the number of retained forward columns to O(sqrt(C)).
func checkpointSpacing(c int) int {
	k := int(math.Ceil(math.Sqrt(1+8*float64(c))/2)) + 1
	if k < 1 {
		k = 1
	}
	return k
}

// LSHapBaum is the Li-Stephens hidden Markov model engine for a
// single target haplotype. It holds no scratch state: ImputeHaplotype
// allocates its emission, forward, backward and state-probability
// arrays on every call, including inside the per-cluster loops.
type LSHapBaum struct {
	data   *ImputationData
	n      int // number of reference haplotypes
	lowMem bool
}

// NewLSHapBaum constructs an engine over data. When lowMem is true the
// forward pass uses the checkpointed buffer; otherwise it retains
// every forward column.
func NewLSHapBaum(data *ImputationData, lowMem bool) *LSHapBaum {
	return &LSHapBaum{data: data, n: data.RefHapPairs().NHaps(), lowMem: lowMem}
}

// em returns the length-n emission vector for cluster c against
// targHap's allele at that cluster.
func (b *LSHapBaum) em(c, targHap int) []float64 {
	out := make([]float64, b.n)
	noErr, errP := b.data.NoErrProb(c), b.data.ErrProb(c)
	targAllele := b.data.TargAllele(c, targHap)
	for h := 0; h < b.n; h++ {
		if b.data.RefAllele(c, h) == targAllele {
			out[h] = noErr
		} else {
			out[h] = errP
		}
	}
	return out
}

func normalizeInPlace(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum > 0 {
		for i := range v {
			v[i] /= sum
		}
	}
	return sum
}

// hapProbsFor sums stateProb over haplotypes sharing a sequence code
// in the given segment, then normalizes the result to sum to 1. The
// per-cluster sequence-probability vector is accumulated as a
// mat.VecDense and scaled in place, rather than as a bare slice,
// because this is the one place in the engine where the quantity is a
// genuine small dense vector consumed only through whole-vector ops
// (accumulate, sum, scale) rather than through the per-haplotype
// indexing the forward/backward recurrences need.
func hapProbsFor(n, nSeq int, stateProb []float64, seqOf func(hap int) int) []float64 {
	out := mat.NewVecDense(nSeq, nil)
	for h := 0; h < n; h++ {
		s := seqOf(h)
		out.SetVec(s, out.AtVec(s)+stateProb[h])
	}
	sum := mat.Sum(out)
	if sum > 0 {
		out.ScaleVec(1/sum, out)
	}
	return out.RawVector().Data
}

// ImputeHaplotype runs the forward pass, backward pass, per-cluster
// state probabilities, and allele projection for one target
// haplotype, returning the posterior allele-probability array indexed
// by data.Markers().SumAlleles(m)+allele, one row per reference
// marker in the window.
func (b *LSHapBaum) ImputeHaplotype(targHap int) []float64 {
	data := b.data
	C := data.NClusters()
	n := b.n
	segs := data.RefHapSegs()

	emCache := make([][]float64, C)
	for c := 0; c < C; c++ {
		emCache[c] = b.em(c, targHap)
	}
	recurrence := func(prev []float64, i int, out []float64) {
		r := data.PRecomb(i)
		em := emCache[i]
		for h := 0; h < n; h++ {
			out[h] = em[h] * (r/float64(n) + (1-r)*prev[h])
		}
		normalizeInPlace(out)
	}

	// Forward pass.
	var fwdBuf forwardBuffer
	if b.lowMem {
		fwdBuf = newCheckpointForwardBuffer(n, checkpointSpacing(C))
	} else {
		fwdBuf = newFullForwardBuffer(C)
	}
	f0 := append([]float64(nil), emCache[0]...)
	normalizeInPlace(f0)
	fwdBuf.set(0, f0)
	prev := f0
	for c := 1; c < C; c++ {
		cur := make([]float64, n)
		recurrence(prev, c, cur)
		fwdBuf.set(c, cur)
		prev = cur
	}

	fwdHapProbs := make([][]float64, C) // fwdHapProbs[c] uses segment c+1's vocabulary
	bwdHapProbs := make([][]float64, C) // bwdHapProbs[c] uses segment c's vocabulary

	// Backward pass, c = C-1 down to 0.
	bLast := make([]float64, n)
	for h := range bLast {
		bLast[h] = 1.0 / float64(n)
	}
	emB := make([]float64, n)
	for h := 0; h < n; h++ {
		emB[h] = bLast[h] * emCache[C-1][h]
	}
	{
		fwd := fwdBuf.get(C-1, recurrence)
		stateProb := make([]float64, n)
		for h := 0; h < n; h++ {
			stateProb[h] = fwd[h] * bLast[h]
		}
		bwdHapProbs[C-1] = hapProbsFor(n, segs.NSeq(C-1), stateProb, func(hap int) int { return segs.Seq(C-1, hap) })
		fwdHapProbs[C-1] = hapProbsFor(n, segs.NSeq(C), stateProb, func(hap int) int { return segs.Seq(C, hap) })
	}

	for c := C - 2; c >= 0; c-- {
		var sumEmB float64
		for _, x := range emB {
			sumEmB += x
		}
		r := data.PRecomb(c + 1)
		bc := make([]float64, n)
		for h := 0; h < n; h++ {
			bc[h] = sumEmB*r/float64(n) + (1-r)*emB[h]
		}
		normalizeInPlace(bc)
		for h := 0; h < n; h++ {
			emB[h] = bc[h] * emCache[c][h]
		}

		fwd := fwdBuf.get(c, recurrence)
		stateProb := make([]float64, n)
		for h := 0; h < n; h++ {
			stateProb[h] = fwd[h] * bc[h]
		}
		bwdHapProbs[c] = hapProbsFor(n, segs.NSeq(c), stateProb, func(hap int) int { return segs.Seq(c, hap) })
		fwdHapProbs[c] = hapProbsFor(n, segs.NSeq(c+1), stateProb, func(hap int) int { return segs.Seq(c+1, hap) })
	}

	return b.project(fwdHapProbs, bwdHapProbs)
}

// project turns per-cluster sequence probabilities into
// per-reference-marker allele probabilities: forward probabilities
// cover each cluster's own markers, and the gaps between clusters
// interpolate between the flanking forward and backward
// probabilities in cumulative genetic distance.
func (b *LSHapBaum) project(fwdHapProbs, bwdHapProbs [][]float64) []float64 {
	data := b.data
	segs := data.RefHapSegs()
	markers := data.Markers()
	C := data.NClusters()
	alleleProbs := make([]float64, markers.TotalAlleles())

	// Before the first cluster start.
	nSeg0 := segs.NSeq(0)
	thresh0 := 0.5 / float64(nSeg0)
	for m := 0; m < segs.ClusterStart(0); m++ {
		base := markers.SumAlleles(m)
		for s := 0; s < nSeg0; s++ {
			if p := bwdHapProbs[0][s]; p >= thresh0 {
				alleleProbs[base+segs.Allele(0, m, s)] += p
			}
		}
	}

	// Between clusters.
	for c := 1; c < C; c++ {
		nSeqC := segs.NSeq(c)
		thresh := 0.5 / float64(nSeqC)
		for s := 0; s < nSeqC; s++ {
			fp, bp := fwdHapProbs[c-1][s], bwdHapProbs[c][s]
			useFwd, useBwd := fp >= thresh, bp >= thresh
			if useFwd {
				for m := segs.ClusterStart(c - 1); m < segs.ClusterEnd(c-1); m++ {
					base := markers.SumAlleles(m)
					alleleProbs[base+segs.Allele(c, m, s)] += fp
				}
			}
			if useFwd || useBwd {
				for m := segs.ClusterEnd(c - 1); m < segs.ClusterStart(c); m++ {
					w := data.Weight(m)
					base := markers.SumAlleles(m)
					alleleProbs[base+segs.Allele(c, m, s)] += w*fp + (1-w)*bp
				}
			}
		}
	}

	// After the last cluster start.
	nSeqLast := segs.NSeq(C)
	threshLast := 0.5 / float64(nSeqLast)
	for m := segs.ClusterStart(C - 1); m < markers.Len(); m++ {
		base := markers.SumAlleles(m)
		for s := 0; s < nSeqLast; s++ {
			if p := fwdHapProbs[C-1][s]; p >= threshLast {
				alleleProbs[base+segs.Allele(C, m, s)] += p
			}
		}
	}

	return alleleProbs
}
