// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnknownDist is returned when a scenario names a distribution type
// that none of the variants below implements.
var ErrUnknownDist = errors.New("unknown distribution type")

// ThetaDist draws the baseline expression rate of a gene, once per
// individual.
type ThetaDist interface {
	drawTheta(src rand.Source) float64
}

// BetaTheta draws theta from Beta(Alpha, Beta).
type BetaTheta struct {
	Alpha, Beta float64
}

func (d BetaTheta) drawTheta(src rand.Source) float64 {
	return distuv.Beta{Alpha: d.Alpha, Beta: d.Beta, Src: src}.Rand()
}

// LogNormalTheta draws theta from LogNormal(Mu, Sigma).
type LogNormalTheta struct {
	Mu, Sigma float64
}

func (d LogNormalTheta) drawTheta(src rand.Source) float64 {
	return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
}

// LibraryDist draws the sequencing library size, once per individual.
type LibraryDist interface {
	drawLibSize(src rand.Source) int
}

// PoissonLibrary draws library sizes from Poisson(Rate).
type PoissonLibrary struct {
	Rate float64
}

func (d PoissonLibrary) drawLibSize(src rand.Source) int {
	if d.Rate <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: d.Rate, Src: src}.Rand())
}

// NegBinLibrary draws library sizes from NB(Size, Prob), with mean
// Size*(1-Prob)/Prob.
type NegBinLibrary struct {
	Size, Prob float64
}

func (d NegBinLibrary) drawLibSize(src rand.Source) int {
	return int(negBinom(d.Size, d.Prob, src))
}

// CountDist draws a haplotype-level read count given the individual's
// library size and the haplotype's expected expression rate.
type CountDist interface {
	drawCount(libSize int, theta float64, src rand.Source) int
}

// PoissonCounts draws counts from Poisson(libSize*theta).
type PoissonCounts struct{}

func (PoissonCounts) drawCount(libSize int, theta float64, src rand.Source) int {
	mean := float64(libSize) * theta
	if !(mean > 0) {
		return 0
	}
	return int(distuv.Poisson{Lambda: mean, Src: src}.Rand())
}

// LogNormalCounts draws counts by perturbing libSize*theta with
// multiplicative log-normal noise whose log-scale standard deviation is
// Sigma/sqrt(libSize), then rounding half to even. Rounded-down zero
// counts are kept as is.
type LogNormalCounts struct {
	Sigma float64
}

func (d LogNormalCounts) drawCount(libSize int, theta float64, src rand.Source) int {
	if libSize <= 0 {
		return 0
	}
	noise := distuv.Normal{Mu: 0, Sigma: d.Sigma / math.Sqrt(float64(libSize)), Src: src}.Rand()
	return int(math.RoundToEven(float64(libSize) * theta * math.Exp(noise)))
}

// NegBinCounts draws counts from NB(size, Prob(size)) where size is
// SizeFactor*libSize*theta. Prob maps the realized size parameter to a
// success probability, so a scenario can hold either the probability or
// the mean-dispersion ratio constant across individuals.
type NegBinCounts struct {
	SizeFactor float64
	Prob       func(size float64) float64
}

func (d NegBinCounts) drawCount(libSize int, theta float64, src rand.Source) int {
	size := d.SizeFactor * float64(libSize) * theta
	return int(negBinom(size, d.Prob(size), src))
}

// negBinom samples NB(size, p) with mean size*(1-p)/p as a
// gamma-poisson mixture; gonum has no direct negative binomial sampler.
func negBinom(size, p float64, src rand.Source) float64 {
	if size <= 0 || p >= 1 {
		return 0
	}
	lambda := distuv.Gamma{Alpha: size, Beta: p / (1 - p), Src: src}.Rand()
	if !(lambda > 0) {
		return 0
	}
	return distuv.Poisson{Lambda: lambda, Src: src}.Rand()
}

// DistConfig is the scenario file's representation of one distribution:
// a type tag plus the parameters of whichever variant the tag selects.
// Mapping to a concrete variant happens once, when the scenario is
// loaded, so a typo fails before any sampling starts.
type DistConfig struct {
	Type       string  `toml:"type"`
	Alpha      float64 `toml:"alpha"`
	Beta       float64 `toml:"beta"`
	Mu         float64 `toml:"mu"`
	Sigma      float64 `toml:"sigma"`
	Rate       float64 `toml:"rate"`
	Size       float64 `toml:"size"`
	SizeFactor float64 `toml:"size_factor"`
	Prob       float64 `toml:"prob"`
	ProbRatio  float64 `toml:"prob_ratio"`
}

func (c DistConfig) thetaDist() (ThetaDist, error) {
	switch c.Type {
	case "beta":
		if c.Alpha <= 0 || c.Beta <= 0 {
			return nil, fmt.Errorf("beta theta needs positive alpha and beta, got %g and %g", c.Alpha, c.Beta)
		}
		return BetaTheta{Alpha: c.Alpha, Beta: c.Beta}, nil
	case "lognormal":
		if c.Sigma < 0 {
			return nil, fmt.Errorf("lognormal theta needs sigma >= 0, got %g", c.Sigma)
		}
		return LogNormalTheta{Mu: c.Mu, Sigma: c.Sigma}, nil
	default:
		return nil, fmt.Errorf("theta: %w %q", ErrUnknownDist, c.Type)
	}
}

func (c DistConfig) libraryDist() (LibraryDist, error) {
	switch c.Type {
	case "poisson":
		if c.Rate <= 0 {
			return nil, fmt.Errorf("poisson library needs rate > 0, got %g", c.Rate)
		}
		return PoissonLibrary{Rate: c.Rate}, nil
	case "negative-binomial":
		if c.Size <= 0 || c.Prob <= 0 || c.Prob > 1 {
			return nil, fmt.Errorf("negative-binomial library needs size > 0 and prob in (0, 1], got %g and %g", c.Size, c.Prob)
		}
		return NegBinLibrary{Size: c.Size, Prob: c.Prob}, nil
	default:
		return nil, fmt.Errorf("library: %w %q", ErrUnknownDist, c.Type)
	}
}

func (c DistConfig) countDist() (CountDist, error) {
	switch c.Type {
	case "poisson":
		return PoissonCounts{}, nil
	case "lognormal":
		if c.Sigma < 0 {
			return nil, fmt.Errorf("lognormal counts need sigma >= 0, got %g", c.Sigma)
		}
		return LogNormalCounts{Sigma: c.Sigma}, nil
	case "negative-binomial":
		sizeFactor := c.SizeFactor
		if sizeFactor == 0 {
			sizeFactor = 1
		}
		switch {
		case c.Prob > 0 && c.Prob < 1:
			p := c.Prob
			return NegBinCounts{SizeFactor: sizeFactor, Prob: func(float64) float64 { return p }}, nil
		case c.ProbRatio > 0:
			k := c.ProbRatio
			return NegBinCounts{SizeFactor: sizeFactor, Prob: func(size float64) float64 { return size / (size + k) }}, nil
		default:
			return nil, fmt.Errorf("negative-binomial counts need prob in (0, 1) or prob_ratio > 0")
		}
	default:
		return nil, fmt.Errorf("counts: %w %q", ErrUnknownDist, c.Type)
	}
}
