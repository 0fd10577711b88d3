// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when matrix or vector dimensions
// disagree.
var ErrShapeMismatch = errors.New("shape mismatch")

// ScanResult holds one estimate per (predictor, phenotype) pair.
// Beta.At(i, k) and SE.At(i, k) are the slope of phenotype column k on
// predictor column i and its standard error.
type ScanResult struct {
	Beta *mat.Dense // predictors x phenotypes
	SE   *mat.Dense
}

// MatrixQTL fits, for every pair of a predictor column of x and a
// phenotype column of y, the univariate least squares regression with
// intercept, without looping over per-pair model fits: the cross
// moments come from one x'y product plus per-column sums, and the
// estimates from closed-form arithmetic on the centered moments.
//
// nobs gives the usable sample count per (predictor, phenotype) pair;
// rows that are missing on either side must be zero-filled by the
// caller and discounted in nobs. A nil nobs means every row counts for
// every pair. Degenerate pairs, fewer than three usable samples or a
// predictor with no variance, get NaN for both estimates instead of an
// error.
func MatrixQTL(y, x, nobs *mat.Dense) (*ScanResult, error) {
	n, k := y.Dims()
	xrows, p := x.Dims()
	if xrows != n {
		return nil, fmt.Errorf("%w: %d phenotype rows, %d predictor rows", ErrShapeMismatch, n, xrows)
	}
	if nobs != nil {
		if r, c := nobs.Dims(); r != p || c != k {
			return nil, fmt.Errorf("%w: nobs is %dx%d, want %dx%d", ErrShapeMismatch, r, c, p, k)
		}
	}
	var sxy mat.Dense
	sxy.Mul(x.T(), y)
	sx := make([]float64, p)
	sxx := make([]float64, p)
	col := make([]float64, n)
	for i := 0; i < p; i++ {
		mat.Col(col, i, x)
		sx[i] = floats.Sum(col)
		sxx[i] = floats.Dot(col, col)
	}
	sy := make([]float64, k)
	syy := make([]float64, k)
	for j := 0; j < k; j++ {
		mat.Col(col, j, y)
		sy[j] = floats.Sum(col)
		syy[j] = floats.Dot(col, col)
	}
	beta := mat.NewDense(p, k, nil)
	se := mat.NewDense(p, k, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < k; j++ {
			nij := float64(n)
			if nobs != nil {
				nij = nobs.At(i, j)
			}
			sxxC := sxx[i] - sx[i]*sx[i]/nij
			if nij <= 2 || sxxC <= 0 {
				beta.Set(i, j, math.NaN())
				se.Set(i, j, math.NaN())
				continue
			}
			sxyC := sxy.At(i, j) - sx[i]*sy[j]/nij
			syyC := syy[j] - sy[j]*sy[j]/nij
			b := sxyC / sxxC
			sigma2 := (syyC - b*b*sxxC) / (nij - 2)
			beta.Set(i, j, b)
			se.Set(i, j, math.Sqrt(sigma2/sxxC))
		}
	}
	return &ScanResult{Beta: beta, SE: se}, nil
}
