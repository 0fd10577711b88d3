// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"fmt"
	"math"
	"sort"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Gene describes the expression model of one simulated gene: its exonic
// length, where reads tend to start, which exonic SNPs can assign a
// read to a haplotype, and the distributions of the baseline expression
// rate and the sequencing library size.
type Gene struct {
	Length     int       // exonic length, positions 1..Length
	PosWeights []float64 // read start weight per position, sums to 1
	SNPPos     []int     // exonic SNP positions, ascending
	SNPFreq    []float64 // allele frequency per exonic SNP
	Theta      ThetaDist
	Library    LibraryDist
}

// Check reports the first inconsistency in the gene definition.
func (g *Gene) Check() error {
	if g.Length < 1 {
		return fmt.Errorf("gene length %d out of range", g.Length)
	}
	if len(g.PosWeights) != g.Length {
		return fmt.Errorf("%d position weights for gene length %d", len(g.PosWeights), g.Length)
	}
	var sum float64
	for i, w := range g.PosWeights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("position weight %g at position %d", w, i+1)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("position weights sum to %g", sum)
	}
	if len(g.SNPFreq) != len(g.SNPPos) {
		return fmt.Errorf("%d SNP frequencies for %d SNP positions", len(g.SNPFreq), len(g.SNPPos))
	}
	for j, p := range g.SNPPos {
		if p < 1 || p > g.Length {
			return fmt.Errorf("SNP position %d outside gene of length %d", p, g.Length)
		}
		if j > 0 && p <= g.SNPPos[j-1] {
			return fmt.Errorf("SNP positions not ascending at index %d", j)
		}
		if f := g.SNPFreq[j]; f < 0 || f > 1 {
			return fmt.Errorf("SNP frequency %g at position %d", f, p)
		}
	}
	if g.Theta == nil || g.Library == nil {
		return fmt.Errorf("gene needs theta and library size distributions")
	}
	return nil
}

// Genotype holds a cohort's phased haplotype dosages, one row per
// individual and one column per cis variant. Entries are 0, 0.5, or 1;
// 0.5 also stands in for missing calls.
type Genotype struct {
	H1, H2 *mat.Dense
}

// Dosage returns the summed per-variant dosage h1+h2, the predictor
// matrix for QTL scans.
func (gt *Genotype) Dosage() *mat.Dense {
	var d mat.Dense
	d.Add(gt.H1, gt.H2)
	return &d
}

// Scenario is a simulation recipe, loaded from a TOML file. It fixes
// the cohort and gene dimensions and the three distribution choices;
// everything else about a dataset comes from the master seed.
type Scenario struct {
	Individuals int        `toml:"individuals"`
	Variants    int        `toml:"variants"`     // cis variants in the genotype panel
	GeneLength  int        `toml:"gene_length"`  // exonic length in bases
	ExonSNPs    int        `toml:"exon_snps"`    // SNPs usable for read assignment
	ReadLength  int        `toml:"read_length"`  // bases covered by one read
	MAFRange    []float64  `toml:"maf_range"`    // bounds for drawn allele frequencies
	GeneticVar  []float64  `toml:"genetic_var"`  // bounds for the target genetic variance
	CausalRange []int      `toml:"causal_range"` // bounds for the causal variant count
	MissingRate float64    `toml:"missing_rate"` // chance a haplotype call is missing
	PosDecay    float64    `toml:"pos_decay"`    // read start bias toward the 5' end, 0 = uniform
	Theta       DistConfig `toml:"theta"`
	Library     DistConfig `toml:"library"`
	Counts      DistConfig `toml:"counts"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	var sc Scenario
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := sc.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Check reports the first invalid scenario setting, including
// distribution type tags that no variant implements.
func (sc *Scenario) Check() error {
	switch {
	case sc.Individuals < 1:
		return fmt.Errorf("individuals = %d out of range", sc.Individuals)
	case sc.Variants < 1:
		return fmt.Errorf("variants = %d out of range", sc.Variants)
	case sc.GeneLength < 1:
		return fmt.Errorf("gene_length = %d out of range", sc.GeneLength)
	case sc.ExonSNPs < 1 || sc.ExonSNPs > sc.GeneLength:
		return fmt.Errorf("exon_snps = %d out of range for gene_length %d", sc.ExonSNPs, sc.GeneLength)
	case sc.ReadLength < 1:
		return fmt.Errorf("read_length = %d out of range", sc.ReadLength)
	case sc.MissingRate < 0 || sc.MissingRate >= 1:
		return fmt.Errorf("missing_rate = %g out of range", sc.MissingRate)
	case sc.PosDecay < 0:
		return fmt.Errorf("pos_decay = %g out of range", sc.PosDecay)
	}
	if err := checkRange(sc.MAFRange, "maf_range"); err != nil {
		return err
	}
	if sc.MAFRange[0] <= 0 || sc.MAFRange[1] > 1 {
		return fmt.Errorf("maf_range = %v outside (0, 1]", sc.MAFRange)
	}
	if err := checkRange(sc.GeneticVar, "genetic_var"); err != nil {
		return err
	}
	if len(sc.CausalRange) != 2 {
		return fmt.Errorf("causal_range needs two entries, got %d", len(sc.CausalRange))
	}
	if sc.CausalRange[0] < 1 || sc.CausalRange[0] > sc.CausalRange[1] || sc.CausalRange[1] > sc.Variants {
		return fmt.Errorf("causal_range = %v out of range for %d variants", sc.CausalRange, sc.Variants)
	}
	if _, err := sc.Theta.thetaDist(); err != nil {
		return err
	}
	if _, err := sc.Library.libraryDist(); err != nil {
		return err
	}
	if _, err := sc.Counts.countDist(); err != nil {
		return err
	}
	return nil
}

func checkRange(r []float64, name string) error {
	if len(r) != 2 {
		return fmt.Errorf("%s needs two entries, got %d", name, len(r))
	}
	if r[0] < 0 || r[0] > r[1] {
		return fmt.Errorf("%s = %v is negative or reversed", name, r)
	}
	return nil
}

// Gene draws the gene structure for this scenario: SNP positions
// uniformly without replacement, frequencies uniformly from maf_range,
// and position weights either uniform or decaying exponentially from
// the 5' end.
func (sc *Scenario) Gene(src rand.Source) (*Gene, error) {
	theta, err := sc.Theta.thetaDist()
	if err != nil {
		return nil, err
	}
	library, err := sc.Library.libraryDist()
	if err != nil {
		return nil, err
	}
	rnd := rand.New(src)
	weights := make([]float64, sc.GeneLength)
	var sum float64
	for i := range weights {
		w := 1.0
		if sc.PosDecay > 0 {
			w = math.Exp(-sc.PosDecay * float64(i) / float64(sc.GeneLength))
		}
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	pos := rnd.Perm(sc.GeneLength)[:sc.ExonSNPs]
	sort.Ints(pos)
	freq := make([]float64, sc.ExonSNPs)
	for j := range pos {
		pos[j]++ // 1-based
		freq[j] = sc.MAFRange[0] + rnd.Float64()*(sc.MAFRange[1]-sc.MAFRange[0])
	}
	g := &Gene{
		Length:     sc.GeneLength,
		PosWeights: weights,
		SNPPos:     pos,
		SNPFreq:    freq,
		Theta:      theta,
		Library:    library,
	}
	return g, g.Check()
}

// Genotype simulates phased haplotypes for the scenario's cohort.
// Each variant gets an allele frequency from maf_range; haplotype
// alleles are independent bernoulli draws, and calls go missing (0.5)
// at missing_rate. The drawn frequency vector is returned alongside
// for effect size construction.
func (sc *Scenario) Genotype(src rand.Source) (*Genotype, []float64) {
	rnd := rand.New(src)
	freq := make([]float64, sc.Variants)
	for j := range freq {
		freq[j] = sc.MAFRange[0] + rnd.Float64()*(sc.MAFRange[1]-sc.MAFRange[0])
	}
	h1 := mat.NewDense(sc.Individuals, sc.Variants, nil)
	h2 := mat.NewDense(sc.Individuals, sc.Variants, nil)
	for i := 0; i < sc.Individuals; i++ {
		for j := 0; j < sc.Variants; j++ {
			h1.Set(i, j, drawAllele(rnd, freq[j], sc.MissingRate))
			h2.Set(i, j, drawAllele(rnd, freq[j], sc.MissingRate))
		}
	}
	return &Genotype{H1: h1, H2: h2}, freq
}

func drawAllele(rnd *rand.Rand, freq, missingRate float64) float64 {
	if missingRate > 0 && rnd.Float64() < missingRate {
		return 0.5
	}
	if rnd.Float64() < freq {
		return 1
	}
	return 0
}
