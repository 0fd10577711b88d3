// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	"github.com/james-bowman/nlp"
	log "github.com/sirupsen/logrus"
)

type pcacmd struct{}

func (cmd *pcacmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "", "input matrix `file` (npy, samples x variants)")
	outputFilename := flags.String("o", "", "output `file` (npy, samples x components)")
	components := flags.Int("components", 4, "number of components")
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
	if *inputFilename == "" || *outputFilename == "" {
		err = errors.New("must provide -i and -o")
		return 2
	}

	log.Print("reading")
	m, err := readNumpyFloat64(*inputFilename)
	if err != nil {
		return 1
	}
	rows, cols := m.Dims()
	log.Printf("input matrix: %d rows, %d cols", rows, cols)

	// nlp wants features in rows and samples in columns
	mtx := m.T()
	log.Print("fitting")
	transformer := nlp.NewPCA(*components)
	transformer.Fit(mtx)
	log.Printf("transforming")
	out, err := transformer.Transform(mtx)
	if err != nil {
		return 1
	}
	out = out.T()

	err = writeNumpyFloat64(*outputFilename, out)
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}
