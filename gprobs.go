// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// chisquared backs the Hardy-Weinberg goodness-of-fit test on
// accumulated genotype call counts.
var chisquared = distuv.ChiSquared{K: 1, Src: rand.NewSource(rand.Uint64())}

// GtBucket names the three-way reduction of a biallelic genotype
// probability vector used by MarkerStats: homozygous reference,
// heterozygous, homozygous alternate.
type GtBucket int

const (
	BucketHomRef GtBucket = iota
	BucketHet
	BucketHomAlt
)

// ReduceGenotypeProbs collapses a per-genotype probability vector
// gtProb (indexed by GtIndex(a1,a2)) into three buckets: hom-ref is
// (0,0); het is any (0,a2>0); alt is everything else. The result is
// normalized to sum to 1.
func ReduceGenotypeProbs(m Marker, gtProb []float64) [3]float64 {
	var out [3]float64
	n := m.NAlleles()
	for a1 := 0; a1 < n; a1++ {
		for a2 := a1; a2 < n; a2++ {
			p := gtProb[GtIndex(a1, a2)]
			switch {
			case a1 == 0 && a2 == 0:
				out[BucketHomRef] += p
			case a1 == 0:
				out[BucketHet] += p
			default:
				out[BucketHomAlt] += p
			}
		}
	}
	normalizeInPlace(out[:])
	return out
}

// MarkerStatsAccumulator accumulates per-sample call and dose sums at
// one marker, and derives allele frequency and the three R² quality
// metrics.
type MarkerStatsAccumulator struct {
	n     int    // samples accumulated
	nCall [3]int // called genotype counts per GtBucket

	sumCall, sumSquareCall             float64
	sumExpected, sumExpectedSquare     float64
	sumSquareExpected, sumCallExpected float64

	alleleSum   float64 // sum of ALT allele marginal probability, over 2N draws
	alleleCount float64
}

// Add folds one sample's three-bucket genotype probabilities into the
// accumulator. call is argmax(buckets); expected is the dose
// gtProb[het] + 2*gtProb[alt]; expSquare is gtProb[het] + 4*gtProb[alt].
func (s *MarkerStatsAccumulator) Add(buckets [3]float64) {
	call := 0.0
	best := buckets[BucketHomRef]
	callIdx := 0
	for i := 1; i < 3; i++ {
		if buckets[i] > best {
			best = buckets[i]
			callIdx = i
		}
	}
	call = float64(callIdx)

	exp := buckets[BucketHet] + 2*buckets[BucketHomAlt]
	expSq := buckets[BucketHet] + 4*buckets[BucketHomAlt]

	s.n++
	s.nCall[callIdx]++
	s.sumCall += call
	s.sumSquareCall += call * call
	s.sumExpected += exp
	s.sumExpectedSquare += expSq
	s.sumSquareExpected += exp * exp
	s.sumCallExpected += call * exp

	s.alleleSum += exp
	s.alleleCount += 2
}

// AlleleFreq returns the ALT allele frequency, averaged over 2N
// allele draws.
func (s *MarkerStatsAccumulator) AlleleFreq() float64 {
	if s.alleleCount == 0 {
		return 0
	}
	return s.alleleSum / s.alleleCount
}

// AllelicR2 returns the estimated squared correlation between the
// most probable and the expected ALT dose, clamped to >= 0, with 0
// returned when a denominator is 0.
func (s *MarkerStatsAccumulator) AllelicR2() float64 {
	n := float64(s.n)
	if n == 0 {
		return 0
	}
	cov := s.sumCallExpected - s.sumCall*s.sumExpected/n
	varBest := s.sumSquareCall - s.sumCall*s.sumCall/n
	varExp := s.sumExpectedSquare - s.sumExpected*s.sumExpected/n
	den := varBest * varExp
	if den == 0 {
		return 0
	}
	r2 := (cov * cov) / den
	if r2 < 0 {
		return 0
	}
	return r2
}

// DoseR2 returns the estimated squared correlation between the
// estimated and the true ALT dose.
func (s *MarkerStatsAccumulator) DoseR2() float64 {
	n := float64(s.n)
	if n == 0 {
		return 0
	}
	num := s.sumSquareExpected - s.sumExpected*s.sumExpected/n
	den := s.sumExpectedSquare - s.sumExpected*s.sumExpected/n
	if den == 0 {
		return 0
	}
	r2 := num / den
	if r2 < 0 {
		r2 = -r2
	}
	return r2
}

// HweDoseR2 returns the dose R² against the Hardy-Weinberg expected
// genotype variance 2p(1-p).
func (s *MarkerStatsAccumulator) HweDoseR2() float64 {
	n := float64(s.n)
	if n == 0 {
		return 0
	}
	num := s.sumSquareExpected - s.sumExpected*s.sumExpected/n
	p := s.sumExpected / (2 * n)
	if p == 0 || p == 1 {
		return 0
	}
	den := 2 * p * (1 - p)
	return (num / n) / den
}

// HwePValue reports a chi-square goodness-of-fit p-value comparing
// the called genotype counts against their Hardy-Weinberg
// expectations at the called allele frequency, one degree of freedom.
// Returns 1 when the test is undefined (no samples, or a monomorphic
// marker, where every expected heterozygote count is 0).
func (s *MarkerStatsAccumulator) HwePValue() float64 {
	n := float64(s.n)
	if n == 0 {
		return 1
	}
	p := (float64(s.nCall[BucketHet]) + 2*float64(s.nCall[BucketHomAlt])) / (2 * n)
	if p == 0 || p == 1 {
		return 1
	}
	exp := [3]float64{n * (1 - p) * (1 - p), 2 * n * p * (1 - p), n * p * p}
	var sum float64
	for b, e := range exp {
		d := float64(s.nCall[b]) - e
		sum += (d * d) / e
	}
	if math.IsNaN(sum) {
		return 1
	}
	return 1 - chisquared.CDF(sum)
}
