// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package exsets

import (
	"fmt"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// weightMatrix is a dense gene x patient matrix, row-major. The
// merged global matrix has rows in global gene-index order and
// columns in aligned patient-column order.
type weightMatrix struct {
	rows, cols int
	data       []float64
}

func (m *weightMatrix) row(i int) []float64 { return m.data[i*m.cols : (i+1)*m.cols] }

// readMatrixFile loads a 2-D numpy array as float64, converting from
// whatever numeric dtype the file carries.
func readMatrixFile(path string) (*weightMatrix, error) {
	rdr, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rdr.Shape) != 2 {
		return nil, fmt.Errorf("%s: want a 2-d array, got shape %v", path, rdr.Shape)
	}
	data, err := readFloat64(rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := &weightMatrix{rows: rdr.Shape[0], cols: rdr.Shape[1], data: data}
	if rdr.ColumnMajor {
		m.data = make([]float64, len(data))
		for i := 0; i < m.rows; i++ {
			for j := 0; j < m.cols; j++ {
				m.data[i*m.cols+j] = data[j*m.rows+i]
			}
		}
	}
	return m, nil
}

func readFloat64(rdr *gonpy.NpyReader) ([]float64, error) {
	var out []float64
	switch rdr.Dtype {
	case "f8":
		return rdr.GetFloat64()
	case "f4":
		v, err := rdr.GetFloat32()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "i8":
		v, err := rdr.GetInt64()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "i4":
		v, err := rdr.GetInt32()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "i2":
		v, err := rdr.GetInt16()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "i1":
		v, err := rdr.GetInt8()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "u1":
		v, err := rdr.GetUint8()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("unsupported numpy dtype %q", rdr.Dtype)
	}
	return out, nil
}

// mergeWeights reads one .npy weight matrix per cohort, in cohort
// order, and assembles the global matrix: cohort k's columns land in
// its contiguous column block, and each local row whose gene survived
// the frequency filter lands in that gene's global row. Rows of genes
// dropped by the filter are skipped. After all cohorts are copied,
// every exact-zero cell is replaced with the smallest strictly
// positive cell found anywhere in the matrix (the pseudocount); a
// matrix with no positive cell at all is a fatal input error.
func mergeWeights(al *alignedCohorts, weightFiles []string) (*weightMatrix, error) {
	if len(weightFiles) != len(al.cohorts) {
		return nil, fmt.Errorf("got %d weights files for %d cohorts", len(weightFiles), len(al.cohorts))
	}
	m := &weightMatrix{
		rows: len(al.genes),
		cols: len(al.patientCols),
	}
	m.data = make([]float64, m.rows*m.cols)
	for k, co := range al.cohorts {
		local, err := readMatrixFile(weightFiles[k])
		if err != nil {
			return nil, err
		}
		if local.rows != len(co.genes) || local.cols != len(co.patients) {
			return nil, fmt.Errorf("%s: got %dx%d matrix, want %dx%d for cohort %s",
				weightFiles[k], local.rows, local.cols, len(co.genes), len(co.patients), co.name)
		}
		offset := al.colOffset[k]
		for g, li := range co.localIndex {
			gi, ok := al.geneIndex[g]
			if !ok {
				continue
			}
			copy(m.data[gi*m.cols+offset:gi*m.cols+offset+local.cols], local.row(li))
		}
	}
	min := 0.0
	for _, v := range m.data {
		if v > 0 && (min == 0 || v < min) {
			min = v
		}
	}
	if min == 0 {
		return nil, fmt.Errorf("weight matrices contain no positive entries; pseudocount is undefined")
	}
	zeros := 0
	for i, v := range m.data {
		if v == 0 {
			m.data[i] = min
			zeros++
		}
	}
	log.WithFields(log.Fields{
		"genes":       m.rows,
		"patients":    m.cols,
		"pseudocount": min,
		"zeroCells":   zeros,
	}).Debug("merged weight matrices")
	return m, nil
}
