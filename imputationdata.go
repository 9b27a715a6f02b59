// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "math"

// ImputationData is the immutable per-window bundle combining the
// coded cluster alleles, per-cluster error and recombination
// probabilities, and per-marker interpolation weights that the
// Li-Stephens engine consumes.
type ImputationData struct {
	refHapPairs  SampleHapPairs // reference restricted to target markers
	targHapPairs SampleHapPairs

	nClusters int
	// clusterStart/clusterEnd in target-marker coordinates.
	tClusterStart, tClusterEnd []int

	refAlleles  [][]int32 // [cluster][refHap]
	targAlleles [][]int32 // [cluster][targHap]

	errProb, noErrProb []float64 // len nClusters
	pRecomb            []float64 // len nClusters, pRecomb[0] == 0

	// weight[m] indexed by reference-marker index within the
	// window (0-based from the window's first reference marker).
	weight []float64

	segs    *RefHapSegs
	markers Markers
}

// BuildImputationData constructs the ImputationData for one window,
// given the current-data view and model parameters. clusterCM is the
// cluster cM-distance target; errRate is the per-marker error rate;
// ne is the effective population size.
func BuildImputationData(cd *CurrentData, gm *GeneticMap, clusterCM, errRate, ne float64) (*ImputationData, error) {
	targMarkers := cd.TargetMarkers()
	nTarget := targMarkers.Len()
	if nTarget == 0 {
		return nil, newConsistencyError("BuildImputationData: window has no target markers")
	}
	genPos := make([]float64, nTarget)
	for i := 0; i < nTarget; i++ {
		genPos[i] = gm.MarkerGenPos(targMarkers.At(i))
	}
	tStart, tEnd := clusterTargetMarkers(genPos, clusterCM)
	nClusters := len(tStart)

	markerIdx := cd.MarkerIndices()
	refClusterStart := make([]int, nClusters)
	refClusterEnd := make([]int, nClusters)
	for c := 0; c < nClusters; c++ {
		refClusterStart[c] = markerIdx[tStart[c]]
		refClusterEnd[c] = markerIdx[tEnd[c]-1] + 1
	}

	segs, err := BuildRefHapSegs(cd.RefSampleHapPairs(), refClusterStart, refClusterEnd)
	if err != nil {
		return nil, err
	}

	refRestricted := cd.RestrictedRefSampleHapPairs()
	targHapPairs := cd.TargetSampleHapPairs()

	refAlleles := make([][]int32, nClusters)
	targAlleles := make([][]int32, nClusters)
	for c := 0; c < nClusters; c++ {
		coder := NewHapCoder(tStart[c], tEnd[c])
		refAlleles[c] = coder.CodeRef(refRestricted)
		targAlleles[c] = coder.CodeTarget(targHapPairs)
	}

	nRefHaps := refRestricted.NHaps()
	errProb := make([]float64, nClusters)
	noErrProb := make([]float64, nClusters)
	for c := 0; c < nClusters; c++ {
		clusterSize := tEnd[c] - tStart[c]
		p := errRate * float64(clusterSize)
		if p > 0.5 {
			p = 0.5
		}
		errProb[c] = p
		noErrProb[c] = 1 - p
	}

	nRefMarkers := cd.RefSampleHapPairs().NMarkers()
	cumPos := make([]float64, nRefMarkers)
	refMarkers := cd.Markers()
	for m := 0; m < nRefMarkers; m++ {
		cumPos[m] = gm.MarkerGenPos(refMarkers.At(m))
	}

	pRecomb := make([]float64, nClusters)
	for c := 1; c < nClusters; c++ {
		pRecomb[c] = recombProb(
			clusterMidpointCM(cumPos, refClusterStart, refClusterEnd, c),
			clusterMidpointCM(cumPos, refClusterStart, refClusterEnd, c-1),
			ne, float64(nRefHaps))
	}

	weight := make([]float64, nRefMarkers)
	for m := range weight {
		weight[m] = math.NaN()
	}
	for c := 0; c < nClusters-1; c++ {
		for m := refClusterStart[c]; m < refClusterEnd[c]; m++ {
			weight[m] = 1.0
		}
	}
	for c := 1; c < nClusters; c++ {
		gapStart, gapEnd := refClusterEnd[c-1], refClusterStart[c]
		if gapEnd <= gapStart {
			continue
		}
		denom := cumPos[gapEnd] - cumPos[gapStart-1]
		for m := gapStart; m < gapEnd; m++ {
			if denom == 0 {
				weight[m] = 1.0
			} else {
				weight[m] = (cumPos[gapEnd] - cumPos[m]) / denom
			}
		}
	}

	return &ImputationData{
		refHapPairs:   refRestricted,
		targHapPairs:  targHapPairs,
		nClusters:     nClusters,
		tClusterStart: tStart,
		tClusterEnd:   tEnd,
		refAlleles:    refAlleles,
		targAlleles:   targAlleles,
		errProb:       errProb,
		noErrProb:     noErrProb,
		pRecomb:       pRecomb,
		weight:        weight,
		segs:          segs,
		markers:       refMarkers,
	}, nil
}

// clusterMidpointCM returns the genetic-position midpoint used for
// cluster c's own recombination anchor: the average of the genetic
// positions of cluster c-1's last marker and of cluster c's first
// marker. For c == 0 this
// collapses to the cluster's own start position.
func clusterMidpointCM(cumPos []float64, starts, ends []int, c int) float64 {
	if c == 0 {
		return cumPos[starts[0]]
	}
	a := ends[c-1] - 1
	if a < 0 {
		a = 0
	}
	return (cumPos[a] + cumPos[starts[c]]) / 2
}

// recombProb returns 1 - exp(-0.04*Ne*genDist/nRefHaps), with
// genDist = max(|cmA-cmB|, 1e-7).
func recombProb(cmA, cmB, ne, nRefHaps float64) float64 {
	d := cmA - cmB
	if d < 0 {
		d = -d
	}
	if d < 1e-7 {
		d = 1e-7
	}
	return 1 - math.Exp(-0.04*ne*d/nRefHaps)
}

func (d *ImputationData) NClusters() int { return d.nClusters }
func (d *ImputationData) RefHapPairs() SampleHapPairs { return d.refHapPairs }
func (d *ImputationData) TargHapPairs() SampleHapPairs { return d.targHapPairs }
func (d *ImputationData) RefAllele(c, hap int) int { return int(d.refAlleles[c][hap]) }
func (d *ImputationData) TargAllele(c, hap int) int { return int(d.targAlleles[c][hap]) }
func (d *ImputationData) ErrProb(c int) float64 { return d.errProb[c] }
func (d *ImputationData) NoErrProb(c int) float64 { return d.noErrProb[c] }
func (d *ImputationData) PRecomb(c int) float64 { return d.pRecomb[c] }
func (d *ImputationData) Weight(m int) float64 { return d.weight[m] }
func (d *ImputationData) RefHapSegs() *RefHapSegs { return d.segs }

// TargetClusterStart/TargetClusterEnd return cluster c's bounds in
// target-marker coordinates. Use RefHapSegs().ClusterStart/ClusterEnd
// for the reference-marker-coordinate bounds used by projection.
func (d *ImputationData) TargetClusterStart(c int) int { return d.tClusterStart[c] }
func (d *ImputationData) TargetClusterEnd(c int) int { return d.tClusterEnd[c] }

// Markers returns the window's reference markers, used by the HMM to
// size and index its output allele-probability array.
func (d *ImputationData) Markers() Markers { return d.markers }
