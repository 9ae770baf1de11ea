// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// mcmcParams collects the sampler knobs.
type mcmcParams struct {
	sizes      []int
	iterations int
	chains     int
	stepLength int
	alpha      float64
	seed       uint64
}

// mcmcResult is the aggregate over all chains: how often each
// candidate set was visited at a sampling step, and its cached test
// result.
type mcmcResult struct {
	freq    map[string]float64
	results map[string]testResult
	samples int
}

// chainRun is one chain's private tally; chains share nothing until
// all of them have finished.
type chainRun struct {
	visits  map[string]int
	results map[string]testResult
	samples int
}

// runMCMC samples candidate sets with independent Metropolis chains.
// The chain state holds one set per requested size, members disjoint
// across slots; a step swaps a random member of a random slot for a
// random gene outside the whole state, and accepts with probability
// min(1, exp(alpha * (score' - score))), where a state's score is the
// sum of -log p over its sets. Every stepLength iterations each
// slot's current set is recorded as one sample. Chain i derives its
// generator from seed+i and the per-chain tallies are summed only
// after every chain finishes, so the aggregate frequencies depend on
// the parameters alone, not on how chains are scheduled.
func runMCMC(al *alignedCohorts, eval *evaluator, params mcmcParams) (*mcmcResult, error) {
	total := 0
	for _, k := range params.sizes {
		total += k
	}
	if total >= len(al.genes) {
		return nil, fmt.Errorf("gene set sizes %v need more than %d genes passing the frequency filter", params.sizes, len(al.genes))
	}
	log.WithFields(log.Fields{
		"sizes":      params.sizes,
		"chains":     params.chains,
		"iterations": params.iterations,
		"stepLength": params.stepLength,
		"seed":       params.seed,
	}).Info("sampling exclusive sets")

	chains := make([]*chainRun, params.chains)
	th := throttle{Max: params.chains}
	for c := 0; c < params.chains; c++ {
		c := c
		th.Go(func() error {
			chains[c] = sampleChain(al, eval, params, params.seed+uint64(c))
			return nil
		})
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}

	agg := &mcmcResult{
		freq:    map[string]float64{},
		results: map[string]testResult{},
	}
	visits := map[string]int{}
	for _, ch := range chains {
		agg.samples += ch.samples
		for key, n := range ch.visits {
			visits[key] += n
		}
		for key, res := range ch.results {
			agg.results[key] = res
		}
	}
	for key, n := range visits {
		agg.freq[key] = float64(n) / float64(agg.samples)
	}
	log.WithFields(log.Fields{"sets": len(agg.freq), "samples": agg.samples}).Info("sampling finished")
	return agg, nil
}

func sampleChain(al *alignedCohorts, eval *evaluator, params mcmcParams, seed uint64) *chainRun {
	rng := rand.New(rand.NewSource(seed))
	run := &chainRun{
		visits:  map[string]int{},
		results: map[string]testResult{},
	}

	// Initial state: a seeded shuffle of the gene indices, dealt out
	// to the slots in order.
	perm := rng.Perm(len(al.genes))
	slots := make([][]int, len(params.sizes))
	inState := make([]bool, len(al.genes))
	next := 0
	for s, k := range params.sizes {
		slots[s] = make([]int, k)
		for j := 0; j < k; j++ {
			slots[s][j] = perm[next]
			inState[perm[next]] = true
			next++
		}
	}

	score := func(slot []int) float64 {
		set := make([]string, len(slot))
		for j, gi := range slot {
			set[j] = al.genes[gi]
		}
		key := setKey(set)
		res, ok := run.results[key]
		if !ok {
			res = eval.evaluate(set)
			run.results[key] = res
		}
		p := res.PValue
		if p < 1e-300 {
			p = 1e-300
		}
		return -math.Log(p)
	}

	slotScores := make([]float64, len(slots))
	for s := range slots {
		slotScores[s] = score(slots[s])
	}

	for iter := 1; iter <= params.iterations; iter++ {
		s := rng.Intn(len(slots))
		j := rng.Intn(len(slots[s]))
		g := rng.Intn(len(al.genes))
		for inState[g] {
			g = rng.Intn(len(al.genes))
		}
		old := slots[s][j]
		slots[s][j] = g
		newScore := score(slots[s])
		delta := newScore - slotScores[s]
		if delta >= 0 || rng.Float64() < math.Exp(params.alpha*delta) {
			inState[old] = false
			inState[g] = true
			slotScores[s] = newScore
		} else {
			slots[s][j] = old
		}
		if iter%params.stepLength == 0 {
			for s := range slots {
				set := make([]string, len(slots[s]))
				for j, gi := range slots[s] {
					set[j] = al.genes[gi]
				}
				run.visits[setKey(set)]++
			}
			run.samples += len(slots)
		}
	}
	return run
}
