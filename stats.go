// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// testMode selects the statistical exclusivity test.
type testMode int

const (
	testUnweighted testMode = iota
	testWeighted
	testPermutational
)

func (t testMode) String() string {
	switch t {
	case testUnweighted:
		return "Unweighted"
	case testWeighted:
		return "Weighted"
	case testPermutational:
		return "Permutational"
	default:
		return fmt.Sprintf("testMode(%d)", int(t))
	}
}

// testMethod selects how the Poisson-binomial tail is computed.
type testMethod int

const (
	methodExact testMethod = iota
	methodSaddlepoint
)

func parseMethod(name string) (testMethod, error) {
	switch name {
	case "Exact":
		return methodExact, nil
	case "Saddlepoint":
		return methodSaddlepoint, nil
	default:
		return 0, fmt.Errorf("method %q not supported (want Exact or Saddlepoint)", name)
	}
}

func (m testMethod) String() string {
	switch m {
	case methodExact:
		return "Exact"
	case methodSaddlepoint:
		return "Saddlepoint"
	default:
		return fmt.Sprintf("testMethod(%d)", int(m))
	}
}

// setKey is the canonical identifier of a candidate set: members
// sorted lexicographically, comma separated.
func setKey(genes []string) string {
	sorted := append([]string(nil), genes...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// testResult is one candidate set's evaluation.
type testResult struct {
	Key       string
	Genes     []string
	PValue    float64
	Statistic int // observed exclusive coverage
	Runtime   float64
}

// exclusiveCoverage counts the patients altered in exactly one gene
// of the set.
func exclusiveCoverage(set []string, geneToCases map[string]map[string]bool) int {
	hits := map[string]int{}
	for _, g := range set {
		for p := range geneToCases[g] {
			hits[p]++
		}
	}
	t := 0
	for _, n := range hits {
		if n == 1 {
			t++
		}
	}
	return t
}

// evaluator binds one test mode and method to the frozen aligned
// data. It only reads shared state, so a single evaluator may be used
// from any number of goroutines.
type evaluator struct {
	al      *alignedCohorts
	mode    testMode
	method  testMethod
	weights *weightMatrix // testWeighted only
	rounds  [][]string    // testPermutational only; grouped permuted files
}

// evaluate computes the candidate set's exclusivity test result.
func (e *evaluator) evaluate(set []string) testResult {
	start := time.Now()
	obs := exclusiveCoverage(set, e.al.geneToCases)
	var p float64
	q := e.exclusivityProbs(set)
	if e.method == methodSaddlepoint {
		p = saddlepointTail(q, obs)
	} else {
		p = poissonBinomialTail(q, obs)
	}
	return testResult{
		Key:       setKey(set),
		Genes:     append([]string(nil), set...),
		PValue:    p,
		Statistic: obs,
		Runtime:   time.Since(start).Seconds(),
	}
}

// exclusivityProbs returns, per patient column, the probability under
// the independent-alterations null that exactly one gene of the set
// is altered in that patient. The unweighted model gives each gene
// its overall alteration frequency in every column; the weighted
// model uses the merged per-event weights.
func (e *evaluator) exclusivityProbs(set []string) []float64 {
	k := len(set)
	var n int
	w := make([][]float64, k)
	if e.mode == testWeighted {
		n = e.weights.cols
		for i, g := range set {
			w[i] = e.weights.row(e.al.geneIndex[g])
		}
	} else {
		n = len(e.al.patients)
		for i, g := range set {
			freq := float64(len(e.al.geneToCases[g])) / float64(n)
			row := make([]float64, n)
			for j := range row {
				row[j] = freq
			}
			w[i] = row
		}
	}
	q := make([]float64, n)
	for j := 0; j < n; j++ {
		var qj float64
		for i := 0; i < k; i++ {
			term := w[i][j]
			for l := 0; l < k; l++ {
				if l != i {
					term *= 1 - w[l][j]
				}
			}
			qj += term
		}
		q[j] = qj
	}
	return q
}

// poissonBinomialTail returns P(T >= t) where T counts successes over
// independent Bernoulli trials with the given probabilities, by
// direct convolution. States at or above t are folded into one
// absorbing bucket, so the cost is O(len(probs) * t).
func poissonBinomialTail(probs []float64, t int) float64 {
	if t <= 0 {
		return 1
	}
	if t > len(probs) {
		return 0
	}
	pmf := make([]float64, t+1) // pmf[t] absorbs all mass at or above t
	pmf[0] = 1
	for _, p := range probs {
		pmf[t] += pmf[t-1] * p
		for i := t - 1; i > 0; i-- {
			pmf[i] = pmf[i]*(1-p) + pmf[i-1]*p
		}
		pmf[0] *= 1 - p
	}
	return pmf[t]
}

var unitNormal = distuv.UnitNormal

// saddlepointTail approximates P(T >= t) for the Poisson-binomial by
// the Lugannani-Rice formula with a continuity correction. When the
// corrected point sits at or below the mean, or the saddlepoint
// equation cannot be solved, it falls back to the exact convolution,
// which is cheap in exactly those cases.
func saddlepointTail(probs []float64, t int) float64 {
	if t <= 0 {
		return 1
	}
	if t > len(probs) {
		return 0
	}
	var mean, variance float64
	for _, p := range probs {
		mean += p
		variance += p * (1 - p)
	}
	x := float64(t) - 0.5
	if x <= mean || variance == 0 {
		return poissonBinomialTail(probs, t)
	}
	cgf := func(s float64) (k0, k1, k2 float64) {
		es := math.Exp(s)
		for _, p := range probs {
			d := 1 - p + p*es
			k0 += math.Log(d)
			k1 += p * es / d
			k2 += p * es * (1 - p) / (d * d)
		}
		return
	}
	s := 0.0
	converged := false
	for iter := 0; iter < 100; iter++ {
		_, k1, k2 := cgf(s)
		if k2 <= 0 {
			break
		}
		step := (k1 - x) / k2
		s -= step
		if math.Abs(step) < 1e-10 {
			converged = true
			break
		}
	}
	if !converged || s <= 0 {
		return poissonBinomialTail(probs, t)
	}
	k0, _, k2 := cgf(s)
	w := math.Sqrt(2 * (s*x - k0))
	u := s * math.Sqrt(k2)
	if w == 0 || u == 0 {
		return poissonBinomialTail(probs, t)
	}
	p := unitNormal.Survival(w) + unitNormal.Prob(w)*(1/u-1/w)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// benjaminiHochberg returns the BH-adjusted q-value for each p-value,
// in input order.
func benjaminiHochberg(pvals []float64) []float64 {
	m := len(pvals)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })
	q := make([]float64, m)
	min := 1.0
	for rank := m; rank >= 1; rank-- {
		i := order[rank-1]
		v := pvals[i] * float64(m) / float64(rank)
		if v < min {
			min = v
		}
		q[i] = min
	}
	return q
}
