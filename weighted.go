// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"flag"
	"fmt"
	"io"
)

// weightedCmd runs the Weighted exclusivity test: the null model
// takes each gene's per-patient alteration probability from the
// merged weight matrices.
type weightedCmd struct {
	args         searchArgs
	methodName   string
	method       testMethod
	weightsFiles stringsFlag
}

func (cmd *weightedCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.args.Flags(flags)
	for _, name := range []string{"m", "method"} {
		flags.StringVar(&cmd.methodName, name, "", "test `method` (Exact or Saddlepoint)")
	}
	for _, name := range []string{"wf", "weights_file"} {
		flags.Var(&cmd.weightsFiles, name, "weight matrix .npy `file`, one per cohort (repeatable)")
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
	if cmd.method, err = parseMethod(cmd.methodName); err != nil {
		return 2
	}
	if len(cmd.weightsFiles) != len(cmd.args.mutationFiles) {
		err = fmt.Errorf("got %d -weights_file arguments for %d mutation files", len(cmd.weightsFiles), len(cmd.args.mutationFiles))
		return 2
	}
	cmd.args.setupLogging()
	if err = cmd.run(); err != nil {
		return 1
	}
	return 0
}

func (cmd *weightedCmd) run() error {
	al, err := cmd.args.loadAndAlign()
	if err != nil {
		return err
	}
	weights, err := mergeWeights(al, cmd.weightsFiles)
	if err != nil {
		return err
	}
	eval := &evaluator{al: al, mode: testWeighted, method: cmd.method, weights: weights}
	return cmd.args.dispatch(al, eval)
}
