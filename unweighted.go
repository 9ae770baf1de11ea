// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"flag"
	"fmt"
	"io"
)

// unweightedCmd runs the Unweighted exclusivity test: the null model
// gives each gene its overall alteration frequency in every patient.
type unweightedCmd struct {
	args       searchArgs
	methodName string
	method     testMethod
}

func (cmd *unweightedCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	cmd.args.setupLogging()
	if err = cmd.run(); err != nil {
		return 1
	}
	return 0
}

func (cmd *unweightedCmd) run() error {
	al, err := cmd.args.loadAndAlign()
	if err != nil {
		return err
	}
	eval := &evaluator{al: al, mode: testUnweighted, method: cmd.method}
	return cmd.args.dispatch(al, eval)
}
