// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"
	"sort"
)

// alignedCohorts is the frozen global view of all cohorts: the
// frequency-filtered gene set with its sorted index bijection, the
// patient union, the concatenated patient columns (one contiguous
// block per cohort, in cohort-list order), and the merged
// gene -> case-set map. Nothing here is mutated after alignCohorts
// returns, so the whole struct can be shared across goroutines
// without locking.
//
// Cohorts that share patient identifiers get one matrix column per
// occurrence; patients (and the unweighted test's sample count) still
// reflect the union.
type alignedCohorts struct {
	cohorts []*cohort

	genes       []string       // post-filter, lexicographic order
	geneIndex   map[string]int // bijection onto [0, len(genes))
	numAllGenes int            // before the frequency filter

	patients    map[string]bool
	patientCols []string
	colOffset   []int // cohort i's column block starts at colOffset[i]

	geneToCases map[string]map[string]bool
}

// alignCohorts folds the cohorts into one globally indexed model.
// Gene and patient sets accumulate as unions and case sets merge by
// gene identifier; only after the fold does the minimum-frequency
// filter decide which genes survive. Surviving genes are numbered
// 0..N-1 in lexicographic order, so identical inputs always produce
// identical indices regardless of per-cohort gene order. A cohort
// contributing zero genes contributes nothing.
func alignCohorts(cohorts []*cohort, minFrequency int) (*alignedCohorts, error) {
	if minFrequency < 1 {
		return nil, fmt.Errorf("minimum frequency must be >= 1, got %d", minFrequency)
	}
	al := &alignedCohorts{
		cohorts:     cohorts,
		geneIndex:   map[string]int{},
		patients:    map[string]bool{},
		geneToCases: map[string]map[string]bool{},
	}
	for _, co := range cohorts {
		al.colOffset = append(al.colOffset, len(al.patientCols))
		al.patientCols = append(al.patientCols, co.patients...)
		for _, p := range co.patients {
			al.patients[p] = true
		}
		for g, cases := range co.geneToCases {
			merged := al.geneToCases[g]
			if merged == nil {
				merged = map[string]bool{}
				al.geneToCases[g] = merged
			}
			for p := range cases {
				merged[p] = true
			}
		}
	}
	al.numAllGenes = len(al.geneToCases)
	for g, cases := range al.geneToCases {
		if len(cases) >= minFrequency {
			al.genes = append(al.genes, g)
		} else {
			delete(al.geneToCases, g)
		}
	}
	sort.Strings(al.genes)
	for i, g := range al.genes {
		al.geneIndex[g] = i
	}
	return al, nil
}
