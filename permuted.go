// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"
	"os"
	"path/filepath"
)

// groupPermutedFiles pairs the per-cohort permuted-matrix directories
// into rounds: round r holds listing entry r from every cohort's
// directory, for the first numPermutations entries in sorted name
// order. Every directory must hold at least numPermutations files;
// a short directory is a configuration error, never a silent
// truncation.
func groupPermutedFiles(dirs []string, numPermutations int) ([][]string, error) {
	if numPermutations < 1 {
		return nil, fmt.Errorf("number of permutations must be >= 1, got %d", numPermutations)
	}
	rounds := make([][]string, numPermutations)
	for r := range rounds {
		rounds[r] = make([]string, len(dirs))
	}
	for i, dir := range dirs {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, ent := range ents {
			if !ent.IsDir() {
				files = append(files, filepath.Join(dir, ent.Name()))
			}
		}
		if len(files) < numPermutations {
			return nil, fmt.Errorf("%s: found %d permuted matrix files, need %d", dir, len(files), numPermutations)
		}
		for r := 0; r < numPermutations; r++ {
			rounds[r][i] = files[r]
		}
	}
	return rounds, nil
}

// permutedCases rebuilds the gene -> case-set map for one permutation
// round. Each file holds a 0/1 gene x patient matrix in the owning
// cohort's local row order; case sets union across cohorts the same
// way the aligner merges observed data. Genes dropped by the
// frequency filter are skipped.
func permutedCases(al *alignedCohorts, round []string) (map[string]map[string]bool, error) {
	cases := make(map[string]map[string]bool, len(al.genes))
	for k, co := range al.cohorts {
		m, err := readMatrixFile(round[k])
		if err != nil {
			return nil, err
		}
		if m.rows != len(co.genes) || m.cols != len(co.patients) {
			return nil, fmt.Errorf("%s: got %dx%d matrix, want %dx%d for cohort %s",
				round[k], m.rows, m.cols, len(co.genes), len(co.patients), co.name)
		}
		for g, li := range co.localIndex {
			if _, ok := al.geneIndex[g]; !ok {
				continue
			}
			row := m.row(li)
			for j, v := range row {
				if v != 0 {
					set := cases[g]
					if set == nil {
						set = map[string]bool{}
						cases[g] = set
					}
					set[co.patients[j]] = true
				}
			}
		}
	}
	return cases, nil
}
