// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Simulator draws haplotype-resolved RNA-seq read counts for one gene
// across a genotyped cohort.
type Simulator struct {
	Gene    *Gene
	ReadLen int
	Counts  CountDist
	Seed    uint64
	Threads int        // 0 = GOMAXPROCS-many
	Mapper  ReadMapper // nil = built-in mapper
}

// ObservedCounts is the columnar table visible to downstream model
// fitting: one entry per individual, in genotype row order.
type ObservedCounts struct {
	Hap1    []int // reads assignable to haplotype 1 via het SNPs
	Hap2    []int // reads assignable to haplotype 2
	Total   []int // all reads from both haplotypes, assignable or not
	LibSize []int // library size draw
}

// HiddenCounts is the ground truth a real experiment never sees:
// per-haplotype reads covering any exonic SNP, heterozygous or not.
type HiddenCounts struct {
	Hap1 []int
	Hap2 []int
}

// SimMeta records the latent parameters behind one simulated dataset.
// CountSigma and ThetaSigma are NaN unless the corresponding
// distribution is log-normal.
type SimMeta struct {
	Betas      []float64
	NCausal    int
	CountSigma float64
	ThetaSigma float64
	Seed       uint64
}

// SimResult is one simulated dataset.
type SimResult struct {
	Observed ObservedCounts
	Hidden   HiddenCounts
	Meta     SimMeta
}

// Run simulates read counts for every individual in gt under the given
// effect sizes. Individuals are processed in parallel, each on its own
// seed-derived RNG stream, so output is identical for any Threads
// setting. Zero and negative counts are recorded as drawn.
func (sim *Simulator) Run(gt *Genotype, betas []float64) (*SimResult, error) {
	if sim.Gene == nil || sim.Counts == nil {
		return nil, fmt.Errorf("simulator needs a gene and a count distribution")
	}
	if err := sim.Gene.Check(); err != nil {
		return nil, err
	}
	if sim.ReadLen < 1 {
		return nil, fmt.Errorf("read length %d out of range", sim.ReadLen)
	}
	n, p := gt.H1.Dims()
	if r, c := gt.H2.Dims(); r != n || c != p {
		return nil, fmt.Errorf("%w: haplotype 1 is %dx%d, haplotype 2 is %dx%d", ErrShapeMismatch, n, p, r, c)
	}
	if len(betas) != p {
		return nil, fmt.Errorf("%w: %d effect sizes for %d variants", ErrShapeMismatch, len(betas), p)
	}
	threads := sim.Threads
	if threads < 1 {
		threads = runtime.GOMAXPROCS(0)
	}
	mapper := sim.Mapper
	if mapper == nil {
		mapper = mapReads
	}
	ncausal := 0
	for _, b := range betas {
		if b != 0 {
			ncausal++
		}
	}
	result := &SimResult{
		Observed: ObservedCounts{
			Hap1:    make([]int, n),
			Hap2:    make([]int, n),
			Total:   make([]int, n),
			LibSize: make([]int, n),
		},
		Hidden: HiddenCounts{
			Hap1: make([]int, n),
			Hap2: make([]int, n),
		},
		Meta: SimMeta{
			Betas:      append([]float64(nil), betas...),
			NCausal:    ncausal,
			CountSigma: sigmaOf(sim.Counts),
			ThetaSigma: sigmaOf(sim.Gene.Theta),
			Seed:       sim.Seed,
		},
	}
	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += threads {
				sim.one(i, gt, betas, mapper, result)
			}
		}(w)
	}
	wg.Wait()
	return result, nil
}

// one simulates individual i into row i of the result tables.
func (sim *Simulator) one(i int, gt *Genotype, betas []float64, mapper ReadMapper, result *SimResult) {
	src := newStream(sim.Seed, i)
	gene := sim.Gene
	theta := gene.Theta.drawTheta(src)
	libSize := gene.Library.drawLibSize(src)
	h1 := gt.H1.RawRowView(i)
	h2 := gt.H2.RawRowView(i)
	var dot1, dot2 float64
	for j, b := range betas {
		if b == 0 {
			continue
		}
		dot1 += h1[j] * b
		dot2 += h2[j] * b
	}
	y1 := sim.Counts.drawCount(libSize, theta*math.Exp(dot1), src)
	y2 := sim.Counts.drawCount(libSize, theta*math.Exp(dot2), src)
	cat := distuv.NewCategorical(gene.PosWeights, src)
	pos1 := drawStarts(cat, y1)
	pos2 := drawStarts(cat, y2)
	het := make([]bool, len(gene.SNPFreq))
	for j, f := range gene.SNPFreq {
		het[j] = distuv.Bernoulli{P: 2 * f * (1 - f), Src: src}.Rand() == 1
	}
	obs, hidden := mapper(pos1, pos2, gene.SNPPos, het, sim.ReadLen)
	result.Observed.Hap1[i] = obs.Hap1
	result.Observed.Hap2[i] = obs.Hap2
	result.Observed.Total[i] = y1 + y2
	result.Observed.LibSize[i] = libSize
	result.Hidden.Hap1[i] = hidden.Hap1
	result.Hidden.Hap2[i] = hidden.Hap2
}

// drawStarts draws n 1-based read start positions. A negative count
// (possible after log-normal rounding) yields no reads.
func drawStarts(cat distuv.Categorical, n int) []int {
	if n <= 0 {
		return nil
	}
	pos := make([]int, n)
	for i := range pos {
		pos[i] = int(cat.Rand()) + 1
	}
	return pos
}

// sigmaOf extracts the log-scale standard deviation from a
// distribution variant that has one.
func sigmaOf(dist interface{}) float64 {
	switch d := dist.(type) {
	case LogNormalCounts:
		return d.Sigma
	case LogNormalTheta:
		return d.Sigma
	default:
		return math.NaN()
	}
}
