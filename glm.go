// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.GaussianFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            log.New(io.Discard, "", 0),
}

func normalize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	for i, x := range a {
		a[i] = (x - mean) / std
	}
}

// glmRefit fits one phenotype against one predictor with an intercept
// and optional covariate columns, ordinary least squares via the
// Gaussian GLM, and returns the predictor's coefficient and standard
// error. Covariates are normalized on a copy. Singular fits come back
// as NaN rather than an error.
func glmRefit(y, x []float64, covar [][]float64) (coef, se float64, err error) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			coef = math.NaN()
			se = math.NaN()
		}
	}()

	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d outcomes, %d predictor values", ErrShapeMismatch, len(y), len(x))
	}
	outcome := make([]statmodel.Dtype, len(y))
	variant := make([]statmodel.Dtype, len(y))
	constants := make([]statmodel.Dtype, len(y))
	for i := range y {
		outcome[i] = y[i]
		variant[i] = x[i]
		constants[i] = 1
	}
	data := [][]statmodel.Dtype{outcome, variant, constants}
	names := []string{"outcome", "variant", "constants"}
	for c, col := range covar {
		if len(col) != len(y) {
			return 0, 0, fmt.Errorf("%w: covariate %d has %d values for %d outcomes", ErrShapeMismatch, c, len(col), len(y))
		}
		series := make([]statmodel.Dtype, len(col))
		copy(series, col)
		normalize(series)
		data = append(data, series)
		names = append(names, fmt.Sprintf("pca%d", c))
	}
	dataset := statmodel.NewDataset(data, names)

	model, err := glm.NewGLM(dataset, "outcome", names[1:], glmConfig)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	result := model.Fit()
	// names[1:] puts the variant first among the regressors
	return result.Params()[0], result.StdErr()[0], nil
}
