// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/combin"
)

// searchStrategy selects how candidate sets are generated.
type searchStrategy int

const (
	strategyEnumerate searchStrategy = iota
	strategyMCMC
)

func parseStrategy(name string) (searchStrategy, error) {
	switch name {
	case "Enumerate":
		return strategyEnumerate, nil
	case "MCMC":
		return strategyMCMC, nil
	default:
		return 0, fmt.Errorf("search strategy %q not implemented", name)
	}
}

func (s searchStrategy) String() string {
	switch s {
	case strategyEnumerate:
		return "Enumerate"
	case strategyMCMC:
		return "MCMC"
	default:
		return fmt.Sprintf("searchStrategy(%d)", int(s))
	}
}

// dispatch invokes exactly one search engine with the bound test and
// hands its raw results to the emitter. The Permutational test never
// reaches here with the MCMC strategy; that combination is rejected
// at argument-parse time.
func (a *searchArgs) dispatch(al *alignedCohorts, eval *evaluator) error {
	params := outputParams{
		Strategy:     a.strategy.String(),
		Test:         eval.mode.String(),
		SetSizes:     a.setSizes,
		MinFrequency: a.minFrequency,
	}
	if eval.mode != testPermutational {
		params.Method = eval.method.String()
	}
	switch a.strategy {
	case strategyEnumerate:
		if len(a.setSizes) > 1 {
			log.Warnf("Enumerate supports a single set size; using %d", a.setSizes[0])
		}
		var results map[string]testResult
		var err error
		if eval.mode == testPermutational {
			params.NumPermutations = len(eval.rounds)
			results, err = permutationalTest(al, a.setSizes[0], eval.rounds, a.numCores)
		} else {
			results, err = enumerateSets(al, eval, a.setSizes[0], a.numCores)
		}
		if err != nil {
			return err
		}
		return writeEnumerated(a.outputPrefix, a.jsonFormat, params, results)
	case strategyMCMC:
		params.NumIterations = a.numIterations
		params.NumChains = a.numChains
		params.StepLength = a.stepLength
		params.Alpha = a.alpha
		params.Seed = a.mcmcSeed
		agg, err := runMCMC(al, eval, mcmcParams{
			sizes:      a.setSizes,
			iterations: a.numIterations,
			chains:     a.numChains,
			stepLength: a.stepLength,
			alpha:      a.alpha,
			seed:       uint64(a.mcmcSeed),
		})
		if err != nil {
			return err
		}
		return writeMCMC(a.outputPrefix, a.jsonFormat, params, agg)
	default:
		return fmt.Errorf("search strategy %q not implemented", a.strategy)
	}
}

// loadAndAlign loads every mutation file and folds the cohorts into
// the frozen global model.
func (a *searchArgs) loadAndAlign() (*alignedCohorts, error) {
	log.Info("loading mutation data")
	cohorts, err := loadCohorts(a.mutationFiles)
	if err != nil {
		return nil, err
	}
	al, err := alignCohorts(cohorts, a.minFrequency)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"genes":        al.numAllGenes,
		"patients":     len(al.patients),
		"minFrequency": a.minFrequency,
		"kept":         len(al.genes),
	}).Info("aligned cohorts")
	return al, nil
}

// candidateSets materializes every unordered k-subset of the filtered
// gene set, in lexicographic order.
func candidateSets(al *alignedCohorts, k int) ([][]string, error) {
	if k > len(al.genes) {
		return nil, fmt.Errorf("cannot build sets of size %d from %d genes passing the frequency filter", k, len(al.genes))
	}
	combos := combin.Combinations(len(al.genes), k)
	sets := make([][]string, len(combos))
	for i, combo := range combos {
		set := make([]string, k)
		for j, gi := range combo {
			set[j] = al.genes[gi]
		}
		sets[i] = set
	}
	return sets, nil
}

// enumerateSets evaluates every unordered k-subset of the filtered
// gene set with the bound test. Evaluations only read frozen shared
// data, so they fan out across numCores workers in interleaved
// shards; results are collected into one map keyed by canonical set
// key after all workers finish.
func enumerateSets(al *alignedCohorts, eval *evaluator, k, numCores int) (map[string]testResult, error) {
	sets, err := candidateSets(al, k)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"sets": len(sets), "k": k, "workers": numCores}).Info("testing sets")
	results := make([]testResult, len(sets))
	th := throttle{Max: numCores}
	for w := 0; w < numCores; w++ {
		w := w
		th.Go(func() error {
			for i := w; i < len(results); i += numCores {
				results[i] = eval.evaluate(sets[i])
			}
			return nil
		})
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]testResult, len(results))
	for _, r := range results {
		out[r.Key] = r
	}
	return out, nil
}

// permutationalTest evaluates every k-subset against the permuted
// cohorts. Each round rebuilds the gene -> case-set map from that
// round's matrix files and compares every set's exclusive coverage
// against the observed value; the p-value for a set is
// (1 + rounds at or above observed) / (1 + rounds). Rounds are
// independent, so they fan out across numCores workers; each round
// tallies into its own slot and the slots are summed afterwards.
func permutationalTest(al *alignedCohorts, k int, rounds [][]string, numCores int) (map[string]testResult, error) {
	sets, err := candidateSets(al, k)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"sets": len(sets), "k": k, "rounds": len(rounds)}).Info("testing sets against permuted matrices")
	start := time.Now()
	obs := make([]int, len(sets))
	for i, set := range sets {
		obs[i] = exclusiveCoverage(set, al.geneToCases)
	}
	exceed := make([][]int, len(rounds))
	th := throttle{Max: numCores}
	for r := range rounds {
		r := r
		th.Go(func() error {
			cases, err := permutedCases(al, rounds[r])
			if err != nil {
				return err
			}
			counts := make([]int, len(sets))
			for i, set := range sets {
				if exclusiveCoverage(set, cases) >= obs[i] {
					counts[i] = 1
				}
			}
			exceed[r] = counts
			return nil
		})
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}
	perSet := time.Since(start).Seconds() / float64(len(sets))
	out := make(map[string]testResult, len(sets))
	for i, set := range sets {
		tail := 0
		for r := range rounds {
			tail += exceed[r][i]
		}
		res := testResult{
			Key:       setKey(set),
			Genes:     append([]string(nil), set...),
			PValue:    float64(1+tail) / float64(1+len(rounds)),
			Statistic: obs[i],
			Runtime:   perSet,
		}
		out[res.Key] = res
	}
	return out, nil
}
