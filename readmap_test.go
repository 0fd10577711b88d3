// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"gopkg.in/check.v1"
)

type readmapSuite struct{}

var _ = check.Suite(&readmapSuite{})

func (s *readmapSuite) TestCountCovering(c *check.C) {
	for _, trial := range []struct {
		starts    []int
		positions []int
		readLen   int
		want      int
	}{
		{nil, []int{10}, 10, 0},
		{[]int{1}, nil, 10, 0},
		{[]int{1}, []int{10}, 10, 1},  // covers 1..10, SNP at right edge
		{[]int{2}, []int{10}, 9, 1},   // covers 2..10
		{[]int{2}, []int{11}, 9, 0},   // covers 2..10, SNP one past the end
		{[]int{10}, []int{10}, 1, 1},  // single-base read on the SNP
		{[]int{11}, []int{10}, 50, 0}, // read starts after the SNP
		{[]int{1, 5, 20}, []int{10, 30}, 10, 2},
		{[]int{1, 1, 1}, []int{1}, 5, 3},
	} {
		c.Check(countCovering(trial.starts, trial.positions, trial.readLen), check.Equals, trial.want,
			check.Commentf("%+v", trial))
	}
}

func (s *readmapSuite) TestMapReads(c *check.C) {
	snpPos := []int{10, 50, 90}
	het := []bool{true, false, true}
	readLen := 10
	// hap1: one read on the het SNP at 10, one on the hom SNP at 50,
	// one covering nothing. hap2: one read on the het SNP at 90.
	pos1 := []int{5, 45, 60}
	pos2 := []int{85}
	obs, hidden := mapReads(pos1, pos2, snpPos, het, readLen)
	c.Check(obs, check.DeepEquals, PairCounts{Hap1: 1, Hap2: 1})
	c.Check(hidden, check.DeepEquals, PairCounts{Hap1: 2, Hap2: 1})
}

func (s *readmapSuite) TestMapReadsNoHet(c *check.C) {
	snpPos := []int{10, 20}
	het := []bool{false, false}
	obs, hidden := mapReads([]int{5, 15}, []int{5}, snpPos, het, 20)
	c.Check(obs, check.DeepEquals, PairCounts{})
	c.Check(hidden, check.DeepEquals, PairCounts{Hap1: 2, Hap2: 1})
}
