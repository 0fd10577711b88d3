// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// writeNumpyFloat64 writes a matrix to fnm in npy format, row-major
// float64.
func writeNumpyFloat64(fnm string, m mat.Matrix) error {
	rows, cols := m.Dims()
	out := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = m.At(i, j)
		}
	}
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriterSize(output, 1<<24)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
	}).Info("writing numpy")
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(out)
	if err != nil {
		return fmt.Errorf("WriteFloat64: %w", err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

// writeNumpyInt32 writes a row-major int32 array to fnm in npy format.
func writeNumpyInt32(fnm string, out []int32, rows, cols int) error {
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriterSize(output, 1<<24)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
	}).Info("writing numpy")
	npw.Shape = []int{rows, cols}
	err = npw.WriteInt32(out)
	if err != nil {
		return fmt.Errorf("WriteInt32: %w", err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

// readNumpyFloat64 reads a two dimensional float64 npy file.
func readNumpyFloat64(fnm string) (*mat.Dense, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: gonpy.NewReader: %w", fnm, err)
	}
	if len(npy.Shape) != 2 {
		return nil, fmt.Errorf("%s: want a 2 dimensional array, got shape %v", fnm, npy.Shape)
	}
	data, err := npy.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	rows, cols := npy.Shape[0], npy.Shape[1]
	if !npy.ColumnMajor {
		return mat.NewDense(rows, cols, data), nil
	}
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, data[j*rows+i])
		}
	}
	return m, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
