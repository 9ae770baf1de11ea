// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"flag"
	"fmt"
	"io"
)

// permutationalCmd runs the Permutational exclusivity test: observed
// exclusive coverage is compared against coverage recomputed from
// pre-permuted mutation matrices. Only the Enumerate strategy is
// implemented for this test, and the incompatible MCMC strategy is
// rejected here, at argument-parse time, before any file is opened.
type permutationalCmd struct {
	args            searchArgs
	numPermutations int
	permutedDirs    stringsFlag
}

func (cmd *permutationalCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.args.Flags(flags)
	for _, name := range []string{"np", "num_permutations"} {
		flags.IntVar(&cmd.numPermutations, name, 0, "number of permutation rounds to use")
	}
	for _, name := range []string{"pf", "permuted_matrix_files"} {
		flags.Var(&cmd.permutedDirs, name, "`directory` of permuted matrix files, one per cohort (repeatable)")
	}
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	if err = cmd.args.validate(); err != nil {
		return 2
	}
	if cmd.args.strategy == strategyMCMC {
		err = fmt.Errorf("the Permutational test is not implemented for the MCMC strategy; use -search_strategy Enumerate")
		return 2
	}
	if cmd.numPermutations < 1 {
		err = fmt.Errorf("-num_permutations must be >= 1, got %d", cmd.numPermutations)
		return 2
	}
	if len(cmd.permutedDirs) != len(cmd.args.mutationFiles) {
		err = fmt.Errorf("got %d -permuted_matrix_files arguments for %d mutation files", len(cmd.permutedDirs), len(cmd.args.mutationFiles))
		return 2
	}
	cmd.args.setupLogging()
	if err = cmd.run(); err != nil {
		return 1
	}
	return 0
}

func (cmd *permutationalCmd) run() error {
	al, err := cmd.args.loadAndAlign()
	if err != nil {
		return err
	}
	rounds, err := groupPermutedFiles(cmd.permutedDirs, cmd.numPermutations)
	if err != nil {
		return err
	}
	eval := &evaluator{al: al, mode: testPermutational, rounds: rounds}
	return cmd.args.dispatch(al, eval)
}
