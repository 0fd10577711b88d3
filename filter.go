// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import "flag"

// assocFilter drops associations from the report output. The beta and
// se matrices are written in full regardless.
type assocFilter struct {
	MaxP    float64
	MinNobs int
}

func (f *assocFilter) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&f.MaxP, "max-p", 1, "drop associations with p value greater than `P`")
	flags.IntVar(&f.MinNobs, "min-nobs", 0, "drop associations estimated from fewer than `N` samples")
}

func (f *assocFilter) Apply(assocs []association) []association {
	kept := make([]association, 0, len(assocs))
	for _, a := range assocs {
		// NaN p never satisfies p <= MaxP, so degenerate pairs
		// drop out here.
		if !(a.p <= f.MaxP) {
			continue
		}
		if a.nobs < float64(f.MinNobs) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}
