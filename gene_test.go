// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"errors"
	"io/ioutil"
	"math"
	"os"

	"golang.org/x/exp/rand"
	"gopkg.in/check.v1"
)

type geneSuite struct{}

var _ = check.Suite(&geneSuite{})

var testScenarioTOML = `
individuals = 120
variants = 8
gene_length = 400
exon_snps = 6
read_length = 75
maf_range = [0.2, 0.5]
genetic_var = [0.05, 0.1]
causal_range = [1, 3]
missing_rate = 0.05
pos_decay = 1.5

[theta]
type = "beta"
alpha = 2.0
beta = 8.0

[library]
type = "poisson"
rate = 5000.0

[counts]
type = "negative-binomial"
prob_ratio = 20.0
`

func writeScenario(c *check.C, body string) string {
	fnm := c.MkDir() + "/scenario.toml"
	err := ioutil.WriteFile(fnm, []byte(body), 0644)
	c.Assert(err, check.IsNil)
	return fnm
}

func (s *geneSuite) TestLoadScenario(c *check.C) {
	sc, err := LoadScenario(writeScenario(c, testScenarioTOML))
	c.Assert(err, check.IsNil)
	c.Check(sc.Individuals, check.Equals, 120)
	c.Check(sc.Variants, check.Equals, 8)
	c.Check(sc.ExonSNPs, check.Equals, 6)
	c.Check(sc.MAFRange, check.DeepEquals, []float64{0.2, 0.5})
	c.Check(sc.CausalRange, check.DeepEquals, []int{1, 3})
	c.Check(sc.Theta.Type, check.Equals, "beta")
	c.Check(sc.Counts.ProbRatio, check.Equals, 20.0)
}

func (s *geneSuite) TestLoadScenarioMissingFile(c *check.C) {
	_, err := LoadScenario(c.MkDir() + "/nope.toml")
	c.Check(err, check.NotNil)
	c.Check(errors.Is(err, os.ErrNotExist), check.Equals, true)
}

func (s *geneSuite) TestLoadScenarioUnknownDist(c *check.C) {
	bad := `
individuals = 10
variants = 4
gene_length = 100
exon_snps = 2
read_length = 50
maf_range = [0.1, 0.5]
genetic_var = [0.01, 0.05]
causal_range = [1, 2]

[theta]
type = "weibull"

[library]
type = "poisson"
rate = 100.0

[counts]
type = "poisson"
`
	_, err := LoadScenario(writeScenario(c, bad))
	c.Check(errors.Is(err, ErrUnknownDist), check.Equals, true)
}

func (s *geneSuite) TestScenarioCheck(c *check.C) {
	base := func() *Scenario {
		return &Scenario{
			Individuals: 10,
			Variants:    4,
			GeneLength:  100,
			ExonSNPs:    2,
			ReadLength:  50,
			MAFRange:    []float64{0.1, 0.5},
			GeneticVar:  []float64{0.01, 0.05},
			CausalRange: []int{1, 2},
			Theta:       DistConfig{Type: "beta", Alpha: 2, Beta: 8},
			Library:     DistConfig{Type: "poisson", Rate: 100},
			Counts:      DistConfig{Type: "poisson"},
		}
	}
	c.Check(base().Check(), check.IsNil)

	sc := base()
	sc.Individuals = 0
	c.Check(sc.Check(), check.NotNil)

	sc = base()
	sc.ExonSNPs = 101
	c.Check(sc.Check(), check.NotNil)

	sc = base()
	sc.MAFRange = []float64{0.5, 0.1}
	c.Check(sc.Check(), check.NotNil)

	sc = base()
	sc.MAFRange = []float64{0.1}
	c.Check(sc.Check(), check.NotNil)

	sc = base()
	sc.CausalRange = []int{3, 5}
	c.Check(sc.Check(), check.NotNil)

	sc = base()
	sc.MissingRate = 1
	c.Check(sc.Check(), check.NotNil)
}

func (s *geneSuite) TestScenarioGene(c *check.C) {
	sc, err := LoadScenario(writeScenario(c, testScenarioTOML))
	c.Assert(err, check.IsNil)
	gene, err := sc.Gene(rand.NewSource(4))
	c.Assert(err, check.IsNil)
	c.Assert(gene.Check(), check.IsNil)
	c.Check(gene.Length, check.Equals, 400)
	c.Assert(gene.SNPPos, check.HasLen, 6)
	c.Assert(gene.SNPFreq, check.HasLen, 6)
	for j, p := range gene.SNPPos {
		c.Check(p >= 1 && p <= 400, check.Equals, true)
		if j > 0 {
			c.Check(p > gene.SNPPos[j-1], check.Equals, true)
		}
		f := gene.SNPFreq[j]
		c.Check(f >= 0.2 && f <= 0.5, check.Equals, true)
	}
	var sum float64
	for _, w := range gene.PosWeights {
		sum += w
	}
	c.Check(math.Abs(sum-1) < 1e-12, check.Equals, true)
	// pos_decay biases read starts toward the 5' end
	c.Check(gene.PosWeights[0] > gene.PosWeights[399], check.Equals, true)
	c.Check(gene.Theta, check.DeepEquals, BetaTheta{Alpha: 2, Beta: 8})
	c.Check(gene.Library, check.DeepEquals, PoissonLibrary{Rate: 5000})
}

func (s *geneSuite) TestScenarioGenotype(c *check.C) {
	sc, err := LoadScenario(writeScenario(c, testScenarioTOML))
	c.Assert(err, check.IsNil)
	gt, freq := sc.Genotype(rand.NewSource(9))
	rows, cols := gt.H1.Dims()
	c.Check(rows, check.Equals, 120)
	c.Check(cols, check.Equals, 8)
	rows, cols = gt.H2.Dims()
	c.Check(rows, check.Equals, 120)
	c.Check(cols, check.Equals, 8)
	c.Assert(freq, check.HasLen, 8)
	for _, f := range freq {
		c.Check(f >= 0.2 && f <= 0.5, check.Equals, true)
	}
	for i := 0; i < 120; i++ {
		for j := 0; j < 8; j++ {
			v := gt.H1.At(i, j)
			c.Assert(v == 0 || v == 0.5 || v == 1, check.Equals, true)
		}
	}
}

func (s *geneSuite) TestScenarioGenotypeNoMissing(c *check.C) {
	sc := &Scenario{
		Individuals: 40,
		Variants:    5,
		GeneLength:  100,
		ExonSNPs:    2,
		ReadLength:  50,
		MAFRange:    []float64{0.3, 0.5},
		GeneticVar:  []float64{0.01, 0.05},
		CausalRange: []int{1, 2},
		Theta:       DistConfig{Type: "beta", Alpha: 2, Beta: 8},
		Library:     DistConfig{Type: "poisson", Rate: 100},
		Counts:      DistConfig{Type: "poisson"},
	}
	c.Assert(sc.Check(), check.IsNil)
	gt, _ := sc.Genotype(rand.NewSource(2))
	for i := 0; i < 40; i++ {
		for j := 0; j < 5; j++ {
			v := gt.H2.At(i, j)
			c.Assert(v == 0 || v == 1, check.Equals, true)
		}
	}
}

func (s *geneSuite) TestGeneCheck(c *check.C) {
	good := testGene()
	c.Check(good.Check(), check.IsNil)

	g := testGene()
	g.PosWeights = g.PosWeights[:10]
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	g.SNPPos = []int{40, 110, 500, 250}
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	g.SNPPos = []int{110, 40, 180, 250}
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	g.SNPFreq = []float64{0.5, 0.4, 1.5, 0.2}
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	g.SNPFreq = g.SNPFreq[:2]
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	g.Theta = nil
	c.Check(g.Check(), check.NotNil)

	g = testGene()
	for i := range g.PosWeights {
		g.PosWeights[i] = 0
	}
	c.Check(g.Check(), check.NotNil)
}
