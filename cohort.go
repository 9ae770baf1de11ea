// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// cohort is one input dataset. genes and patients keep their order of
// first appearance in the mutation file; localIndex maps a gene to its
// row in the cohort's weight and permuted matrices.
type cohort struct {
	name        string
	genes       []string
	localIndex  map[string]int
	patients    []string
	geneToCases map[string]map[string]bool
}

// loadCohort reads one adjacency-list mutation file: one patient per
// line, the patient identifier first, then the genes altered in that
// patient, tab or space separated. Blank lines and lines starting
// with # are skipped. Files ending in .gz are decompressed on the
// fly. No frequency filter is applied here; that is the aligner's
// job.
func loadCohort(path string) (*cohort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var in io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		in = gz
	}

	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	co := &cohort{
		name:        name,
		localIndex:  map[string]int{},
		geneToCases: map[string]map[string]bool{},
	}
	seen := map[string]bool{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1<<20), 1<<26)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		patient := fields[0]
		if seen[patient] {
			return nil, fmt.Errorf("%s: duplicate patient %q", path, patient)
		}
		seen[patient] = true
		co.patients = append(co.patients, patient)
		for _, g := range fields[1:] {
			if _, ok := co.localIndex[g]; !ok {
				co.localIndex[g] = len(co.genes)
				co.genes = append(co.genes, g)
			}
			cases := co.geneToCases[g]
			if cases == nil {
				cases = map[string]bool{}
				co.geneToCases[g] = cases
			}
			cases[patient] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(co.patients) == 0 {
		return nil, fmt.Errorf("%s: no patients found", path)
	}
	log.WithFields(log.Fields{
		"cohort":   co.name,
		"genes":    len(co.genes),
		"patients": len(co.patients),
	}).Debug("loaded mutation data")
	return co, nil
}

// loadCohorts loads every mutation file, in order. A single failure
// aborts the whole load: global indices cannot be assigned without
// complete input.
func loadCohorts(paths []string) ([]*cohort, error) {
	cohorts := make([]*cohort, 0, len(paths))
	for _, path := range paths {
		co, err := loadCohort(path)
		if err != nil {
			return nil, err
		}
		cohorts = append(cohorts, co)
	}
	return cohorts, nil
}
