// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
	"gopkg.in/check.v1"
)

type glmSuite struct{}

var _ = check.Suite(&glmSuite{})

func (s *glmSuite) TestRefitNoCovariates(c *check.C) {
	// slope 1.5 with small residuals
	x := []float64{0, 0.5, 1, 0, 1, 0.5, 1, 0}
	y := make([]float64, len(x))
	rnd := rand.New(rand.NewSource(5))
	for i := range y {
		y[i] = 1.5*x[i] + 0.01*rnd.NormFloat64()
	}
	beta, se, err := glmRefit(y, x, nil)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(beta-1.5) < 0.1, check.Equals, true)
	c.Check(se < 0.1, check.Equals, true)
	c.Check(se > 0, check.Equals, true)
}

func (s *glmSuite) TestRefitAdjustsForCovariate(c *check.C) {
	// the outcome tracks the covariate, and the predictor is just a
	// noisy copy of the same covariate: adjusting must shrink the
	// predictor's coefficient toward zero
	n := 200
	rnd := rand.New(rand.NewSource(8))
	covar := make([]float64, n)
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		covar[i] = rnd.NormFloat64()
		x[i] = covar[i] + 0.1*rnd.NormFloat64()
		y[i] = 3*covar[i] + 0.1*rnd.NormFloat64()
	}
	marginal, _, err := glmRefit(y, x, nil)
	c.Assert(err, check.IsNil)
	adjusted, _, err := glmRefit(y, x, [][]float64{covar})
	c.Assert(err, check.IsNil)
	c.Check(marginal > 2, check.Equals, true)
	c.Check(math.Abs(adjusted) < 0.5, check.Equals, true)
}

func (s *glmSuite) TestRefitSingular(c *check.C) {
	// constant predictor alongside the intercept
	x := []float64{1, 1, 1, 1, 1}
	y := []float64{1, 2, 3, 4, 5}
	beta, se, err := glmRefit(y, x, nil)
	c.Check(err, check.IsNil)
	c.Check(math.IsNaN(beta), check.Equals, true)
	c.Check(math.IsNaN(se), check.Equals, true)
}

func (s *glmSuite) TestRefitShapeMismatch(c *check.C) {
	_, _, err := glmRefit([]float64{1, 2}, []float64{1}, nil)
	c.Check(errors.Is(err, ErrShapeMismatch), check.Equals, true)
	_, _, err = glmRefit([]float64{1, 2}, []float64{1, 2}, [][]float64{{1}})
	c.Check(errors.Is(err, ErrShapeMismatch), check.Equals, true)
}
