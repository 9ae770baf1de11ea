// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// setSizesImplemented is the closed list of candidate-set sizes the
// statistical tests support.
var setSizesImplemented = []int{2, 3}

// stringsFlag collects a list-valued flag: repeat the flag, or pass
// comma-separated values, or both.
type stringsFlag []string

func (f *stringsFlag) String() string { return strings.Join(*f, ",") }

func (f *stringsFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v != "" {
			*f = append(*f, v)
		}
	}
	return nil
}

// intsFlag is stringsFlag for integers.
type intsFlag []int

func (f *intsFlag) String() string {
	parts := make([]string, len(*f))
	for i, v := range *f {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (f *intsFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f = append(*f, n)
	}
	return nil
}

// searchArgs holds the flags shared by every test-mode subcommand:
// the input cohorts, the output destination, and the search-strategy
// parameters.
type searchArgs struct {
	mutationFiles stringsFlag
	outputPrefix  string
	minFrequency  int
	numCores      int
	verbose       int
	jsonFormat    bool

	strategyName  string
	strategy      searchStrategy
	setSizes      intsFlag
	numIterations int
	numChains     int
	stepLength    int
	alpha         float64
	mcmcSeed      int64
}

func (a *searchArgs) Flags(flags *flag.FlagSet) {
	for _, name := range []string{"mf", "mutation_files"} {
		flags.Var(&a.mutationFiles, name, "mutation `file`, one per cohort (repeatable)")
	}
	for _, name := range []string{"o", "output_prefix"} {
		flags.StringVar(&a.outputPrefix, name, "", "output `prefix` for the results table")
	}
	for _, name := range []string{"f", "min_frequency"} {
		flags.IntVar(&a.minFrequency, name, 1, "drop genes altered in fewer than `N` patients across all cohorts")
	}
	for _, name := range []string{"c", "num_cores"} {
		flags.IntVar(&a.numCores, name, 1, "number of parallel workers")
	}
	for _, name := range []string{"v", "verbose"} {
		flags.IntVar(&a.verbose, name, 1, "verbosity `level` (0-4)")
	}
	flags.BoolVar(&a.jsonFormat, "json_format", false, "write JSON instead of a tab-separated table")

	for _, name := range []string{"s", "search_strategy"} {
		flags.StringVar(&a.strategyName, name, "MCMC", "search `strategy` (Enumerate or MCMC)")
	}
	for _, name := range []string{"ks", "gene_set_sizes"} {
		flags.Var(&a.setSizes, name, "candidate set `sizes` to search (repeatable)")
	}
	for _, name := range []string{"N", "num_iterations"} {
		flags.IntVar(&a.numIterations, name, 1000, "MCMC iterations per chain")
	}
	for _, name := range []string{"nc", "num_chains"} {
		flags.IntVar(&a.numChains, name, 1, "number of independent MCMC chains")
	}
	for _, name := range []string{"sl", "step_length"} {
		flags.IntVar(&a.stepLength, name, 100, "record the chain state every `N` iterations")
	}
	for _, name := range []string{"a", "alpha"} {
		flags.Float64Var(&a.alpha, name, 2.0, "MCMC acceptance scaling (CoMEt `alpha`)")
	}
	flags.Int64Var(&a.mcmcSeed, "mcmc_seed", time.Now().Unix(), "base random `seed` for the MCMC chains")
}

// validate checks the shared flags and resolves the strategy name.
// Everything here fails before any input file is opened.
func (a *searchArgs) validate() error {
	if len(a.mutationFiles) == 0 {
		return fmt.Errorf("at least one -mutation_files argument is required")
	}
	if a.outputPrefix == "" {
		return fmt.Errorf("-output_prefix is required")
	}
	if a.minFrequency < 1 {
		return fmt.Errorf("-min_frequency must be >= 1, got %d", a.minFrequency)
	}
	if a.numCores < 1 {
		return fmt.Errorf("-num_cores must be >= 1, got %d", a.numCores)
	}
	if a.verbose < 0 || a.verbose > 4 {
		return fmt.Errorf("-verbose must be in 0..4, got %d", a.verbose)
	}
	if len(a.setSizes) == 0 {
		return fmt.Errorf("-gene_set_sizes is required")
	}
	for _, k := range a.setSizes {
		supported := false
		for _, s := range setSizesImplemented {
			if k == s {
				supported = true
			}
		}
		if !supported {
			return fmt.Errorf("set size %d not supported (implemented sizes: %v)", k, setSizesImplemented)
		}
	}
	var err error
	a.strategy, err = parseStrategy(a.strategyName)
	if err != nil {
		return err
	}
	if a.strategy == strategyMCMC {
		if a.numIterations < 1 {
			return fmt.Errorf("-num_iterations must be >= 1, got %d", a.numIterations)
		}
		if a.numChains < 1 {
			return fmt.Errorf("-num_chains must be >= 1, got %d", a.numChains)
		}
		if a.stepLength < 1 || a.stepLength > a.numIterations {
			return fmt.Errorf("-step_length must be in 1..num_iterations, got %d", a.stepLength)
		}
	}
	return nil
}

// setupLogging maps the -verbose integer onto logrus levels.
func (a *searchArgs) setupLogging() {
	switch a.verbose {
	case 0:
		log.SetLevel(log.ErrorLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	case 2, 3:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}
}
