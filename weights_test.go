// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"gopkg.in/check.v1"
)

type weightsSuite struct{}

var _ = check.Suite(&weightsSuite{})

// Cohort A: genes g1,g2 (local rows 0,1), patients p1,p2.
// Cohort B: genes g2,g3 (local rows 0,1), patient p3.
func (s *weightsSuite) cohorts() []*cohort {
	a := testCohort("A", [][]string{
		{"p1", "g1", "g2"},
		{"p2", "g2"},
	})
	b := testCohort("B", [][]string{
		{"p3", "g2", "g3"},
	})
	return []*cohort{a, b}
}

func (s *weightsSuite) TestMergeAndPseudocount(c *check.C) {
	al, err := alignCohorts(s.cohorts(), 1)
	c.Assert(err, check.IsNil)
	tmpdir := c.MkDir()
	wfA := tmpdir + "/A.npy"
	wfB := tmpdir + "/B.npy"
	writeNpy(c, wfA, 2, 2, []float64{
		0.1, 0, // g1
		0.3, 0.4, // g2
	})
	writeNpy(c, wfB, 2, 1, []float64{
		0.5, // g2
		0.7, // g3
	})
	m, err := mergeWeights(al, []string{wfA, wfB})
	c.Assert(err, check.IsNil)
	c.Check(m.rows, check.Equals, 3)
	c.Check(m.cols, check.Equals, 3)
	// g2's global row collects A's local row in columns 0-1 and B's
	// in column 2.
	c.Check(m.row(al.geneIndex["g2"]), check.DeepEquals, []float64{0.3, 0.4, 0.5})
	// Exact zeros (g1 outside cohort A's block and its zero cell, g3
	// outside B's block) become the global minimum positive value.
	c.Check(m.row(al.geneIndex["g1"]), check.DeepEquals, []float64{0.1, 0.1, 0.1})
	c.Check(m.row(al.geneIndex["g3"]), check.DeepEquals, []float64{0.1, 0.1, 0.7})
	for _, v := range m.data {
		c.Check(v > 0, check.Equals, true)
	}
}

func (s *weightsSuite) TestFilteredGeneRowsSkipped(c *check.C) {
	al, err := alignCohorts(s.cohorts(), 2)
	c.Assert(err, check.IsNil)
	c.Assert(al.genes, check.DeepEquals, []string{"g2"})
	tmpdir := c.MkDir()
	wfA := tmpdir + "/A.npy"
	wfB := tmpdir + "/B.npy"
	writeNpy(c, wfA, 2, 2, []float64{
		0.9, 0.9,
		0.3, 0.4,
	})
	writeNpy(c, wfB, 2, 1, []float64{
		0.5,
		0.9,
	})
	m, err := mergeWeights(al, []string{wfA, wfB})
	c.Assert(err, check.IsNil)
	c.Check(m.rows, check.Equals, 1)
	c.Check(m.row(0), check.DeepEquals, []float64{0.3, 0.4, 0.5})
}

func (s *weightsSuite) TestAllZeroMatrix(c *check.C) {
	al, err := alignCohorts(s.cohorts(), 1)
	c.Assert(err, check.IsNil)
	tmpdir := c.MkDir()
	wfA := tmpdir + "/A.npy"
	wfB := tmpdir + "/B.npy"
	writeNpy(c, wfA, 2, 2, make([]float64, 4))
	writeNpy(c, wfB, 2, 1, make([]float64, 2))
	_, err = mergeWeights(al, []string{wfA, wfB})
	c.Check(err, check.ErrorMatches, `.*no positive entries.*`)
}

func (s *weightsSuite) TestShapeMismatch(c *check.C) {
	al, err := alignCohorts(s.cohorts(), 1)
	c.Assert(err, check.IsNil)
	tmpdir := c.MkDir()
	wfA := tmpdir + "/A.npy"
	wfB := tmpdir + "/B.npy"
	writeNpy(c, wfA, 2, 3, make([]float64, 6))
	writeNpy(c, wfB, 2, 1, []float64{0.5, 0.7})
	_, err = mergeWeights(al, []string{wfA, wfB})
	c.Check(err, check.ErrorMatches, `.*got 2x3 matrix, want 2x2.*`)
}

func (s *weightsSuite) TestFileCountMismatch(c *check.C) {
	al, err := alignCohorts(s.cohorts(), 1)
	c.Assert(err, check.IsNil)
	_, err = mergeWeights(al, []string{"only-one.npy"})
	c.Check(err, check.ErrorMatches, `got 1 weights files for 2 cohorts`)
}
