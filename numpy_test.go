// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"math"
	"os"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/check.v1"
)

type numpySuite struct{}

var _ = check.Suite(&numpySuite{})

func (s *numpySuite) TestWriteReadRoundTrip(c *check.C) {
	fnm := c.MkDir() + "/m.npy"
	m := mat.NewDense(3, 2, []float64{
		1, 2,
		-0.5, math.NaN(),
		1e30, 0,
	})
	err := writeNumpyFloat64(fnm, m)
	c.Assert(err, check.IsNil)
	got, err := readNumpyFloat64(fnm)
	c.Assert(err, check.IsNil)
	rows, cols := got.Dims()
	c.Assert(rows, check.Equals, 3)
	c.Assert(cols, check.Equals, 2)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if i == 1 && j == 1 {
				c.Check(math.IsNaN(got.At(i, j)), check.Equals, true)
			} else {
				c.Check(got.At(i, j), check.Equals, m.At(i, j))
			}
		}
	}
}

func (s *numpySuite) TestWriteInt32(c *check.C) {
	fnm := c.MkDir() + "/c.npy"
	err := writeNumpyInt32(fnm, []int32{1, 2, 3, 40, 50, 60}, 2, 3)
	c.Assert(err, check.IsNil)
	f, err := os.Open(fnm)
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{2, 3})
	data, err := npy.GetInt32()
	c.Assert(err, check.IsNil)
	c.Check(data, check.DeepEquals, []int32{1, 2, 3, 40, 50, 60})
}

func (s *numpySuite) TestReadMissingFile(c *check.C) {
	_, err := readNumpyFloat64(c.MkDir() + "/nope.npy")
	c.Check(err, check.NotNil)
}
