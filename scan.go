// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type scancmd struct {
	filter assocFilter
}

func (cmd *scancmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	yFilename := flags.String("y", "", "phenotype matrix `file` (npy, samples x phenotypes)")
	xFilename := flags.String("x", "", "genotype matrix `file` (npy, samples x variants)")
	nobsFilename := flags.String("nobs", "", "per-pair sample count matrix `file` (npy, variants x phenotypes)")
	outputDir := flags.String("output-dir", ".", "output `directory`")
	refitTop := flags.Int("refit-top", 0, "refit the `N` strongest associations with covariate adjustment")
	covarFilename := flags.String("covariates", "", "covariate matrix `file` (npy, samples x components) for -refit-top")
	cmd.filter.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}
	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}
	if *yFilename == "" || *xFilename == "" {
		err = errors.New("must provide -y and -x")
		return 2
	}

	y, err := readNumpyFloat64(*yFilename)
	if err != nil {
		return 1
	}
	x, err := readNumpyFloat64(*xFilename)
	if err != nil {
		return 1
	}
	var nobs *mat.Dense
	if *nobsFilename != "" {
		nobs, err = readNumpyFloat64(*nobsFilename)
		if err != nil {
			return 1
		}
	}
	n, k := y.Dims()
	_, p := x.Dims()
	log.Infof("scanning %d variants x %d phenotypes, %d samples", p, k, n)
	result, err := MatrixQTL(y, x, nobs)
	if err != nil {
		return 1
	}

	var wg WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		wg.Error(writeNumpyFloat64(filepath.Join(*outputDir, "beta.npy"), result.Beta))
	}()
	go func() {
		defer wg.Done()
		wg.Error(writeNumpyFloat64(filepath.Join(*outputDir, "se.npy"), result.SE))
	}()
	err = wg.Wait()
	if err != nil {
		return 1
	}

	assocs := cmd.filter.Apply(collectAssociations(result, nobs, n))
	err = writeAssociations(filepath.Join(*outputDir, "scan.csv"), assocs)
	if err != nil {
		return 1
	}
	if *refitTop > 0 {
		var covar [][]float64
		if *covarFilename != "" {
			covar, err = readCovariates(*covarFilename, n)
			if err != nil {
				return 1
			}
		}
		err = writeRefits(filepath.Join(*outputDir, "refit.csv"), assocs, y, x, covar, *refitTop)
		if err != nil {
			return 1
		}
	}
	log.Info("done")
	return 0
}

// association is one (variant, phenotype) estimate with its t statistic
// and two-sided p value.
type association struct {
	variant   int
	phenotype int
	beta, se  float64
	t, p      float64
	nobs      float64
}

func collectAssociations(result *ScanResult, nobs *mat.Dense, n int) []association {
	p, k := result.Beta.Dims()
	assocs := make([]association, 0, p*k)
	for i := 0; i < p; i++ {
		for j := 0; j < k; j++ {
			nij := float64(n)
			if nobs != nil {
				nij = nobs.At(i, j)
			}
			a := association{
				variant:   i,
				phenotype: j,
				beta:      result.Beta.At(i, j),
				se:        result.SE.At(i, j),
				t:         math.NaN(),
				p:         math.NaN(),
				nobs:      nij,
			}
			if !math.IsNaN(a.beta) && !math.IsNaN(a.se) && a.se > 0 {
				a.t = a.beta / a.se
				dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nij - 2}
				a.p = 2 * dist.Survival(math.Abs(a.t))
			}
			assocs = append(assocs, a)
		}
	}
	return assocs
}

func writeAssociations(fnm string, assocs []association) error {
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	fmt.Fprint(bufw, "variant,phenotype,beta,se,t,p\n")
	for _, a := range assocs {
		_, err = fmt.Fprintf(bufw, "%d,%d,%g,%g,%g,%g\n", a.variant, a.phenotype, a.beta, a.se, a.t, a.p)
		if err != nil {
			return err
		}
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func readCovariates(fnm string, n int) ([][]float64, error) {
	m, err := readNumpyFloat64(fnm)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	if rows != n {
		return nil, fmt.Errorf("%w: %d covariate rows for %d samples", ErrShapeMismatch, rows, n)
	}
	covar := make([][]float64, cols)
	for c := range covar {
		covar[c] = mat.Col(nil, c, m)
	}
	return covar, nil
}

// writeRefits refits the strongest associations one model at a time,
// adjusting for the covariates, and writes both the marginal and the
// adjusted estimates.
func writeRefits(fnm string, assocs []association, y, x *mat.Dense, covar [][]float64, top int) error {
	ranked := make([]association, 0, len(assocs))
	for _, a := range assocs {
		if !math.IsNaN(a.t) {
			ranked = append(ranked, a)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].t) > math.Abs(ranked[j].t)
	})
	if len(ranked) > top {
		ranked = ranked[:top]
	}
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	fmt.Fprint(bufw, "variant,phenotype,beta,se,adj_beta,adj_se\n")
	for _, a := range ranked {
		adjBeta, adjSE, err := glmRefit(mat.Col(nil, a.phenotype, y), mat.Col(nil, a.variant, x), covar)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(bufw, "%d,%d,%g,%g,%g,%g\n", a.variant, a.phenotype, a.beta, a.se, adjBeta, adjSE)
		if err != nil {
			return err
		}
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
