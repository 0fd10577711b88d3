// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

type simcmd struct{}

func (cmd *simcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	scenarioFilename := flags.String("scenario", "", "scenario `file` (toml)")
	outputDir := flags.String("output-dir", ".", "output `directory`")
	seed := flags.Uint64("seed", 1, "master random `seed`")
	threads := flags.Int("threads", 0, "worker `threads` (0 = all cpus)")
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
	if *scenarioFilename == "" {
		err = errors.New("must provide -scenario")
		return 2
	}

	sc, err := LoadScenario(*scenarioFilename)
	if err != nil {
		return 1
	}
	log.Infof("scenario %s: %d individuals, %d cis variants, %d exon SNPs", *scenarioFilename, sc.Individuals, sc.Variants, sc.ExonSNPs)

	src := rand.NewSource(*seed)
	gene, err := sc.Gene(src)
	if err != nil {
		return 1
	}
	gt, freq := sc.Genotype(src)
	betas, err := CreateBetas(freq,
		[2]float64{sc.GeneticVar[0], sc.GeneticVar[1]},
		[2]int{sc.CausalRange[0], sc.CausalRange[1]}, src)
	if err != nil {
		return 1
	}
	counts, err := sc.Counts.countDist()
	if err != nil {
		return 1
	}

	sim := &Simulator{
		Gene:    gene,
		ReadLen: sc.ReadLength,
		Counts:  counts,
		Seed:    *seed,
		Threads: *threads,
	}
	log.Info("simulating read counts")
	result, err := sim.Run(gt, betas)
	if err != nil {
		return 1
	}
	err = cmd.writeOutput(*outputDir, *scenarioFilename, gt, freq, result)
	if err != nil {
		return 1
	}
	log.Info("done")
	return 0
}

func (cmd *simcmd) writeOutput(dir, scenario string, gt *Genotype, freq []float64, result *SimResult) error {
	obs, hidden := &result.Observed, &result.Hidden
	n := len(obs.Total)
	pheno := mat.NewDense(n, 2, nil)
	// counts.npy columns: hap1, hap2, total, libsize
	counts := make([]int32, n*4)
	for i := 0; i < n; i++ {
		total := float64(obs.Total[i])
		lib := float64(obs.LibSize[i])
		pheno.Set(i, 0, total)
		pheno.Set(i, 1, math.Log((total+1)/(lib+1)))
		counts[i*4] = int32(obs.Hap1[i])
		counts[i*4+1] = int32(obs.Hap2[i])
		counts[i*4+2] = int32(obs.Total[i])
		counts[i*4+3] = int32(obs.LibSize[i])
	}
	var wg WaitGroup
	wg.Add(6)
	go func() {
		defer wg.Done()
		wg.Error(writeGzCSV(filepath.Join(dir, "observed.csv.gz"), func(w io.Writer) error {
			fmt.Fprint(w, "index,hap1,hap2,total,libsize\n")
			for i := 0; i < n; i++ {
				_, err := fmt.Fprintf(w, "%d,%d,%d,%d,%d\n", i, obs.Hap1[i], obs.Hap2[i], obs.Total[i], obs.LibSize[i])
				if err != nil {
					return err
				}
			}
			return nil
		}))
	}()
	go func() {
		defer wg.Done()
		wg.Error(writeGzCSV(filepath.Join(dir, "hidden.csv.gz"), func(w io.Writer) error {
			fmt.Fprint(w, "index,hap1,hap2\n")
			for i := 0; i < n; i++ {
				_, err := fmt.Fprintf(w, "%d,%d,%d\n", i, hidden.Hap1[i], hidden.Hap2[i])
				if err != nil {
					return err
				}
			}
			return nil
		}))
	}()
	go func() {
		defer wg.Done()
		wg.Error(writeNumpyFloat64(filepath.Join(dir, "genotype.npy"), gt.Dosage()))
	}()
	go func() {
		defer wg.Done()
		wg.Error(writeNumpyFloat64(filepath.Join(dir, "phenotype.npy"), pheno))
	}()
	go func() {
		defer wg.Done()
		wg.Error(writeNumpyInt32(filepath.Join(dir, "counts.npy"), counts, n, 4))
	}()
	go func() {
		defer wg.Done()
		wg.Error(cmd.writeMeta(filepath.Join(dir, "meta.json"), scenario, freq, result))
	}()
	return wg.Wait()
}

func (cmd *simcmd) writeMeta(fnm, scenario string, freq []float64, result *SimResult) error {
	meta := &result.Meta
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	// json has no encoding for NaN, so the absent sigmas become null
	enc := json.NewEncoder(f)
	enc.SetIndent("", "\t")
	err = enc.Encode(map[string]interface{}{
		"scenario":    scenario,
		"betas":       meta.Betas,
		"ncausal":     meta.NCausal,
		"genetic_var": GeneticVariance(meta.Betas, freq),
		"count_sigma": nanNull(meta.CountSigma),
		"theta_sigma": nanNull(meta.ThetaSigma),
		"seed":        meta.Seed,
	})
	if err != nil {
		return err
	}
	return f.Close()
}

func nanNull(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func writeGzCSV(fnm string, write func(w io.Writer) error) error {
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	gzw := pgzip.NewWriter(f)
	bufw := bufio.NewWriterSize(gzw, 1<<20)
	if err := write(bufw); err != nil {
		return err
	}
	if err := bufw.Flush(); err != nil {
		return err
	}
	if err := gzw.Close(); err != nil {
		return err
	}
	return f.Close()
}
