// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
)

// outputParams records the run configuration alongside JSON results.
type outputParams struct {
	Strategy        string  `json:"search_strategy"`
	Test            string  `json:"test"`
	Method          string  `json:"method,omitempty"`
	SetSizes        []int   `json:"gene_set_sizes"`
	MinFrequency    int     `json:"min_frequency"`
	NumPermutations int     `json:"num_permutations,omitempty"`
	NumIterations   int     `json:"num_iterations,omitempty"`
	NumChains       int     `json:"num_chains,omitempty"`
	StepLength      int     `json:"step_length,omitempty"`
	Alpha           float64 `json:"alpha,omitempty"`
	Seed            int64   `json:"mcmc_seed,omitempty"`
}

type enumeratedRow struct {
	GeneSet   string  `json:"gene_set"`
	PValue    float64 `json:"pvalue"`
	FDR       float64 `json:"fdr"`
	Runtime   float64 `json:"runtime"`
	Statistic int     `json:"statistic"`
}

type mcmcRow struct {
	GeneSet   string  `json:"gene_set"`
	Frequency float64 `json:"frequency"`
	PValue    float64 `json:"pvalue"`
	Statistic int     `json:"statistic"`
}

// writeEnumerated emits the enumeration table: one row per candidate
// set with its p-value, BH-adjusted FDR, runtime, and observed
// statistic, in ascending p-value order (ties broken by set key).
func writeEnumerated(prefix string, jsonFormat bool, params outputParams, results map[string]testResult) error {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pvals := make([]float64, len(keys))
	for i, key := range keys {
		pvals[i] = results[key].PValue
	}
	fdr := benjaminiHochberg(pvals)
	rows := make([]enumeratedRow, len(keys))
	for i, key := range keys {
		res := results[key]
		rows[i] = enumeratedRow{
			GeneSet:   key,
			PValue:    res.PValue,
			FDR:       fdr[i],
			Runtime:   res.Runtime,
			Statistic: res.Statistic,
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].PValue < rows[b].PValue })

	if jsonFormat {
		return writeJSON(prefix+"-enumerated-sets.json", params, rows)
	}
	return writeTable(prefix+"-enumerated-sets.tsv",
		[]string{"gene_set", "pvalue", "fdr", "runtime", "statistic"},
		len(rows), func(i int) []string {
			r := rows[i]
			return []string{r.GeneSet, formatFloat(r.PValue), formatFloat(r.FDR), formatFloat(r.Runtime), fmt.Sprintf("%d", r.Statistic)}
		})
}

// writeMCMC emits the sampling table: one row per visited candidate
// set with its visitation frequency, p-value, and observed statistic,
// in descending frequency order.
func writeMCMC(prefix string, jsonFormat bool, params outputParams, agg *mcmcResult) error {
	keys := make([]string, 0, len(agg.freq))
	for key := range agg.freq {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([]mcmcRow, len(keys))
	for i, key := range keys {
		res := agg.results[key]
		rows[i] = mcmcRow{
			GeneSet:   key,
			Frequency: agg.freq[key],
			PValue:    res.PValue,
			Statistic: res.Statistic,
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Frequency > rows[b].Frequency })

	if jsonFormat {
		return writeJSON(prefix+"-mcmc-sets.json", params, rows)
	}
	return writeTable(prefix+"-mcmc-sets.tsv",
		[]string{"gene_set", "frequency", "pvalue", "statistic"},
		len(rows), func(i int) []string {
			r := rows[i]
			return []string{r.GeneSet, formatFloat(r.Frequency), formatFloat(r.PValue), fmt.Sprintf("%d", r.Statistic)}
		})
}

func formatFloat(v float64) string { return fmt.Sprintf("%g", v) }

func writeTable(path string, header []string, n int, row func(int) []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				w.WriteByte('\t')
			}
			w.WriteString(field)
		}
		w.WriteByte('\n')
	}
	writeRow(header)
	for i := 0; i < n; i++ {
		writeRow(row(i))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithField("output", path).Info("wrote results")
	return nil
}

func writeJSON(path string, params outputParams, rows interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(map[string]interface{}{
		"params":  params,
		"results": rows,
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithField("output", path).Info("wrote results")
	return nil
}
