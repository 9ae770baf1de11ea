// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"math"

	"gopkg.in/check.v1"
)

type statsSuite struct{}

var _ = check.Suite(&statsSuite{})

func (s *statsSuite) TestPoissonBinomialTail(c *check.C) {
	probs := []float64{0.5, 0.5, 0.5, 0.5}
	// Binomial(4, 0.5): P(T >= 2) = 11/16.
	c.Check(poissonBinomialTail(probs, 2), closeTo, 11.0/16.0)
	c.Check(poissonBinomialTail(probs, 0), check.Equals, 1.0)
	c.Check(poissonBinomialTail(probs, 5), check.Equals, 0.0)
	c.Check(poissonBinomialTail(probs, 4), closeTo, 1.0/16.0)

	// Heterogeneous probabilities: P(T >= 1) = 1 - (1-0.1)(1-0.2).
	c.Check(poissonBinomialTail([]float64{0.1, 0.2}, 1), closeTo, 1-0.9*0.8)
	c.Check(poissonBinomialTail([]float64{0.1, 0.2}, 2), closeTo, 0.02)
}

func (s *statsSuite) TestSaddlepointMatchesExact(c *check.C) {
	probs := make([]float64, 200)
	for i := range probs {
		probs[i] = 0.2
	}
	for _, t := range []int{50, 60, 75} {
		exact := poissonBinomialTail(probs, t)
		approx := saddlepointTail(probs, t)
		c.Assert(exact > 0, check.Equals, true)
		rel := math.Abs(approx-exact) / exact
		if rel > 0.05 {
			c.Errorf("t=%d: saddlepoint %g vs exact %g (relative error %g)", t, approx, exact, rel)
		}
	}
}

func (s *statsSuite) TestSaddlepointFallsBackBelowMean(c *check.C) {
	probs := []float64{0.5, 0.5, 0.5, 0.5}
	// t=1 is below the mean; the fallback is the exact tail.
	c.Check(saddlepointTail(probs, 1), closeTo, poissonBinomialTail(probs, 1))
	c.Check(saddlepointTail(probs, 0), check.Equals, 1.0)
	c.Check(saddlepointTail(probs, 5), check.Equals, 0.0)
}

func (s *statsSuite) TestExclusiveCoverage(c *check.C) {
	geneToCases := map[string]map[string]bool{
		"g1": {"p1": true, "p2": true},
		"g2": {"p2": true, "p3": true},
		"g3": {"p4": true},
	}
	// p1 and p3 are covered once, p2 twice, p4 by a gene outside the set.
	c.Check(exclusiveCoverage([]string{"g1", "g2"}, geneToCases), check.Equals, 2)
	c.Check(exclusiveCoverage([]string{"g1", "g2", "g3"}, geneToCases), check.Equals, 3)
	c.Check(exclusiveCoverage([]string{"g3"}, geneToCases), check.Equals, 1)
}

func (s *statsSuite) TestEvaluateUnweighted(c *check.C) {
	a := testCohort("A", [][]string{
		{"p1", "g1"},
		{"p2", "g2"},
	})
	al, err := alignCohorts([]*cohort{a}, 1)
	c.Assert(err, check.IsNil)
	eval := &evaluator{al: al, mode: testUnweighted, method: methodExact}
	res := eval.evaluate([]string{"g2", "g1"})
	c.Check(res.Key, check.Equals, "g1,g2")
	c.Check(res.Statistic, check.Equals, 2)
	// Each gene has frequency 1/2, so per patient
	// q = 2 * 0.5 * 0.5 = 0.5 and P(T >= 2) = 0.25.
	c.Check(res.PValue, closeTo, 0.25)
}

func (s *statsSuite) TestBenjaminiHochberg(c *check.C) {
	q := benjaminiHochberg([]float64{0.005, 0.1, 0.9})
	c.Check(q[0], closeTo, 0.015)
	c.Check(q[1], closeTo, 0.15)
	c.Check(q[2], closeTo, 0.9)

	// Monotonization: a large early p-value is capped by later ranks.
	q = benjaminiHochberg([]float64{0.01, 0.02, 0.03, 0.04})
	for _, v := range q {
		c.Check(v, closeTo, 0.04)
	}
}

func (s *statsSuite) TestSetKey(c *check.C) {
	c.Check(setKey([]string{"g2", "g1"}), check.Equals, "g1,g2")
	c.Check(setKey([]string{"g1", "g2"}), check.Equals, "g1,g2")
}

func (s *statsSuite) TestParseMethod(c *check.C) {
	m, err := parseMethod("Exact")
	c.Check(err, check.IsNil)
	c.Check(m, check.Equals, methodExact)
	m, err = parseMethod("Saddlepoint")
	c.Check(err, check.IsNil)
	c.Check(m, check.Equals, methodSaddlepoint)
	_, err = parseMethod("Bogus")
	c.Check(err, check.NotNil)
}

// closeTo checks float equality within 1e-9.
var closeTo = &floatChecker{&check.CheckerInfo{Name: "closeTo", Params: []string{"obtained", "expected"}}}

type floatChecker struct {
	*check.CheckerInfo
}

func (ck *floatChecker) Check(params []interface{}, names []string) (bool, string) {
	obtained, ok := params[0].(float64)
	if !ok {
		return false, "obtained value is not a float64"
	}
	expected, ok := params[1].(float64)
	if !ok {
		return false, "expected value is not a float64"
	}
	return math.Abs(obtained-expected) < 1e-9, ""
}
