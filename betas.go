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

// ErrTooFewCausal is returned by CreateBetas when the frequency vector
// has fewer usable variants than the drawn causal count.
var ErrTooFewCausal = errors.New("not enough variants with nonzero frequency")

// CreateBetas assigns cis-regulatory effect sizes to a panel of
// variants with allele frequencies freq. It draws a target genetic
// variance uniformly from varRange and a causal count uniformly from
// the inclusive causalRange, splits the variance across the causal
// variants in uniform random proportions, and sizes each effect so that
// its Hardy-Weinberg dosage variance contributes its share:
// beta = sqrt(share / (2 f (1-f))), with a random sign. Non-causal
// entries are zero.
//
// Variants with frequency zero are never chosen. A frequency of exactly
// one is not screened out and yields an infinite effect; callers
// wanting finite effects must keep frequencies inside (0, 1).
func CreateBetas(freq []float64, varRange [2]float64, causalRange [2]int, src rand.Source) ([]float64, error) {
	if varRange[0] < 0 || varRange[0] > varRange[1] {
		return nil, fmt.Errorf("genetic variance range [%g, %g] is negative or reversed", varRange[0], varRange[1])
	}
	if causalRange[0] < 1 || causalRange[0] > causalRange[1] {
		return nil, fmt.Errorf("causal count range [%d, %d] is empty or reversed", causalRange[0], causalRange[1])
	}
	rnd := rand.New(src)
	v := distuv.Uniform{Min: varRange[0], Max: varRange[1], Src: src}.Rand()
	ncausal := causalRange[0] + rnd.Intn(causalRange[1]-causalRange[0]+1)
	var eligible []int
	for i, f := range freq {
		if f > 0 {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) < ncausal {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrTooFewCausal, ncausal, len(eligible))
	}
	shares := make([]float64, ncausal)
	var total float64
	for i := range shares {
		shares[i] = rnd.Float64()
		total += shares[i]
	}
	perm := rnd.Perm(len(eligible))
	betas := make([]float64, len(freq))
	for i := 0; i < ncausal; i++ {
		j := eligible[perm[i]]
		f := freq[j]
		beta := math.Sqrt(v * shares[i] / total / (2 * f * (1 - f)))
		if rnd.Intn(2) == 1 {
			beta = -beta
		}
		betas[j] = beta
	}
	return betas, nil
}

// GeneticVariance returns the variance of the dosage-weighted effect
// sum under Hardy-Weinberg equilibrium, 2 sum beta^2 f (1-f). freq must
// be at least as long as betas.
func GeneticVariance(betas, freq []float64) float64 {
	var v float64
	for i, b := range betas {
		f := freq[i]
		v += 2 * b * b * f * (1 - f)
	}
	return v
}
