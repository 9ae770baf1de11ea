// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"bytes"
	"io/ioutil"
	"os"

	"gopkg.in/check.v1"
)

type permutedSuite struct{}

var _ = check.Suite(&permutedSuite{})

func (s *permutedSuite) TestGrouping(c *check.C) {
	dirA := c.MkDir()
	dirB := c.MkDir()
	for _, name := range []string{"0.npy", "1.npy", "2.npy"} {
		c.Assert(ioutil.WriteFile(dirA+"/"+name, []byte{}, 0644), check.IsNil)
		c.Assert(ioutil.WriteFile(dirB+"/"+name, []byte{}, 0644), check.IsNil)
	}
	rounds, err := groupPermutedFiles([]string{dirA, dirB}, 2)
	c.Assert(err, check.IsNil)
	c.Assert(rounds, check.HasLen, 2)
	c.Check(rounds[0], check.DeepEquals, []string{dirA + "/0.npy", dirB + "/0.npy"})
	c.Check(rounds[1], check.DeepEquals, []string{dirA + "/1.npy", dirB + "/1.npy"})
}

func (s *permutedSuite) TestShortDirectory(c *check.C) {
	dirA := c.MkDir()
	c.Assert(ioutil.WriteFile(dirA+"/0.npy", []byte{}, 0644), check.IsNil)
	_, err := groupPermutedFiles([]string{dirA}, 5)
	c.Check(err, check.ErrorMatches, `.*found 1 permuted matrix files, need 5`)
}

func (s *permutedSuite) TestPermutedCases(c *check.C) {
	a := testCohort("A", [][]string{
		{"p1", "g1", "g2"},
		{"p2", "g2"},
	})
	b := testCohort("B", [][]string{
		{"p3", "g2", "g3"},
	})
	al, err := alignCohorts([]*cohort{a, b}, 1)
	c.Assert(err, check.IsNil)
	tmpdir := c.MkDir()
	fileA := tmpdir + "/A0.npy"
	fileB := tmpdir + "/B0.npy"
	// Permuted round: in A, g1 moves to p2 and g2 covers only p1; in
	// B, g2 loses p3 and g3 keeps it.
	writeNpy(c, fileA, 2, 2, []float64{
		0, 1, // g1
		1, 0, // g2
	})
	writeNpy(c, fileB, 2, 1, []float64{
		0, // g2
		1, // g3
	})
	cases, err := permutedCases(al, []string{fileA, fileB})
	c.Assert(err, check.IsNil)
	c.Check(cases["g1"], check.DeepEquals, map[string]bool{"p2": true})
	c.Check(cases["g2"], check.DeepEquals, map[string]bool{"p1": true})
	c.Check(cases["g3"], check.DeepEquals, map[string]bool{"p3": true})
}

func (s *permutedSuite) TestMCMCRejectedBeforeLoading(c *check.C) {
	// Nonexistent inputs prove the check fires before any file is
	// opened: a load attempt would fail with a different error.
	var stderr bytes.Buffer
	exited := (&permutationalCmd{}).RunCommand("exsets", []string{
		"-mf", "does-not-exist-1.tsv,does-not-exist-2.tsv",
		"-o", c.MkDir() + "/out",
		"-ks", "2",
		"-s", "MCMC",
		"-np", "10",
		"-pf", "no-dir-1,no-dir-2",
	}, nil, os.Stdout, &stderr)
	c.Check(exited, check.Equals, 2)
	c.Check(stderr.String(), check.Matches, `(?s).*not implemented for the MCMC strategy.*`)
}

func (s *permutedSuite) TestDirectoryCountMismatch(c *check.C) {
	var stderr bytes.Buffer
	exited := (&permutationalCmd{}).RunCommand("exsets", []string{
		"-mf", "does-not-exist-1.tsv,does-not-exist-2.tsv",
		"-o", c.MkDir() + "/out",
		"-ks", "2",
		"-s", "Enumerate",
		"-np", "10",
		"-pf", "only-one-dir",
	}, nil, os.Stdout, &stderr)
	c.Check(exited, check.Equals, 2)
	c.Check(stderr.String(), check.Matches, `(?s).*got 1 -permuted_matrix_files arguments for 2 mutation files.*`)
}
