// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import "sort"

// PairCounts holds one individual's read counts for the two haplotypes.
type PairCounts struct {
	Hap1, Hap2 int
}

// A ReadMapper reduces simulated read start positions to per-haplotype
// counts. pos1 and pos2 are 1-based start positions of the reads
// originating from each haplotype; a read starting at s covers
// positions s through s+readLen-1. snpPos lists the exonic SNP
// positions in ascending order and het marks, per SNP, whether this
// individual is heterozygous there. The first result counts reads
// covering at least one heterozygous SNP (the assignable, observed
// reads); the second counts reads covering at least one SNP of any
// kind (the ground truth hidden from real experiments).
type ReadMapper func(pos1, pos2, snpPos []int, het []bool, readLen int) (obs, hidden PairCounts)

// mapReads is the built-in ReadMapper.
func mapReads(pos1, pos2, snpPos []int, het []bool, readLen int) (PairCounts, PairCounts) {
	hetPos := make([]int, 0, len(snpPos))
	for j, p := range snpPos {
		if het[j] {
			hetPos = append(hetPos, p)
		}
	}
	obs := PairCounts{
		Hap1: countCovering(pos1, hetPos, readLen),
		Hap2: countCovering(pos2, hetPos, readLen),
	}
	hidden := PairCounts{
		Hap1: countCovering(pos1, snpPos, readLen),
		Hap2: countCovering(pos2, snpPos, readLen),
	}
	return obs, hidden
}

// countCovering returns how many of the given read starts cover at
// least one of the ascending positions.
func countCovering(starts, positions []int, readLen int) int {
	if len(positions) == 0 {
		return 0
	}
	n := 0
	for _, s := range starts {
		i := sort.SearchInts(positions, s)
		if i < len(positions) && positions[i] <= s+readLen-1 {
			n++
		}
	}
	return n
}
