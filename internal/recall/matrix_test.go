// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import (
	"math"
	"reflect"
	"testing"
)

const epsilon = 1e-12

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMatrix_GrowAndAdd(t *testing.T) {
	m := NewMatrix()
	if r, c := m.Dims(); r != 0 || c != 0 {
		t.Fatalf("NewMatrix().Dims() = %dx%d, want 0x0", r, c)
	}

	m.Grow(2, 3)
	m.Add(1, 2, 1)
	m.Add(1, 2, 1)
	m.Add(0, 0, 0)

	if r, c := m.Dims(); r != 2 || c != 3 {
		t.Errorf("Dims() = %dx%d, want 2x3", r, c)
	}
	if got := m.At(1, 2); got != 2 {
		t.Errorf("At(1, 2) = %v, want 2", got)
	}
	if got := m.NNZ(); got != 1 {
		t.Errorf("NNZ() = %d, want 1 (zero increments are not stored)", got)
	}

	m.Grow(1, 1)
	if r, c := m.Dims(); r != 2 || c != 3 {
		t.Errorf("Grow() shrank the matrix to %dx%d", r, c)
	}
}

func TestMatrix_AddOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Add() outside the matrix did not panic")
		}
	}()
	m := NewMatrix()
	m.Grow(1, 1)
	m.Add(1, 0, 1)
}

func TestMatrix_ScaleAndNormalize(t *testing.T) {
	m := NewMatrix()
	m.Grow(2, 2)
	m.Add(0, 0, 4)
	m.Add(1, 1, 2)

	m.Scale(0.5)
	if got := m.At(0, 0); !approx(got, 2) {
		t.Errorf("after Scale, At(0, 0) = %v, want 2", got)
	}

	m.Normalize()
	if got := m.Max(); !approx(got, 1) {
		t.Errorf("after Normalize, Max() = %v, want 1", got)
	}
	if got := m.At(1, 1); !approx(got, 0.5) {
		t.Errorf("after Normalize, At(1, 1) = %v, want 0.5", got)
	}
}

func TestMatrix_NormalizeAllZero(t *testing.T) {
	m := NewMatrix()
	m.Grow(3, 3)
	m.Normalize()
	if m.NNZ() != 0 || m.Max() != 0 {
		t.Errorf("Normalize() changed an all-zero matrix")
	}
}

func TestMatrix_ScaleDropsUnderflow(t *testing.T) {
	m := NewMatrix()
	m.Grow(1, 1)
	m.Add(0, 0, math.SmallestNonzeroFloat64)
	m.Scale(0.5)
	if m.NNZ() != 0 {
		t.Errorf("NNZ() = %d after underflow, want 0", m.NNZ())
	}
}

func TestMatrix_CSRRoundTrip(t *testing.T) {
	m := NewMatrix()
	m.Grow(3, 4)
	m.Add(0, 3, 0.25)
	m.Add(0, 1, 1)
	m.Add(2, 0, 0.5)

	c := m.ToCSR()
	want := &CSR{
		Rows:    3,
		Cols:    4,
		IndPtr:  []int{0, 2, 2, 3},
		Indices: []int{1, 3, 0},
		Data:    []float64{1, 0.25, 0.5},
	}
	if !reflect.DeepEqual(c, want) {
		t.Fatalf("ToCSR() = %+v, want %+v", c, want)
	}

	back, err := MatrixFromCSR(c)
	if err != nil {
		t.Fatalf("MatrixFromCSR() error = %v", err)
	}
	if !reflect.DeepEqual(back.ToCSR(), c) {
		t.Errorf("round trip changed the matrix")
	}
	if got := back.Row(0); !reflect.DeepEqual(got, map[int]float64{1: 1, 3: 0.25}) {
		t.Errorf("Row(0) = %v", got)
	}
}

func TestCSR_Validate(t *testing.T) {
	tests := []struct {
		name string
		csr  CSR
	}{
		{"negative shape", CSR{Rows: -1, IndPtr: []int{0}}},
		{"short indptr", CSR{Rows: 2, Cols: 2, IndPtr: []int{0, 0}}},
		{"indices and data disagree", CSR{Rows: 1, Cols: 2, IndPtr: []int{0, 1}, Indices: []int{0}}},
		{"indptr does not cover entries", CSR{Rows: 1, Cols: 2, IndPtr: []int{0, 0}, Indices: []int{0}, Data: []float64{1}}},
		{"decreasing indptr", CSR{Rows: 2, Cols: 2, IndPtr: []int{0, 2, 1}, Indices: []int{0}, Data: []float64{1}}},
		{"column out of range", CSR{Rows: 1, Cols: 1, IndPtr: []int{0, 1}, Indices: []int{3}, Data: []float64{1}}},
		{"negative value", CSR{Rows: 1, Cols: 1, IndPtr: []int{0, 1}, Indices: []int{0}, Data: []float64{-1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.csr.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestTopK(t *testing.T) {
	tests := []struct {
		name string
		row  map[int]float64
		cols int
		k    int
		want []int
	}{
		{"descending score", map[int]float64{0: 0.2, 1: 1, 2: 0.5}, 3, 3, []int{1, 2, 0}},
		{"ties by ascending index", map[int]float64{4: 0.5, 1: 0.5, 2: 1}, 5, 3, []int{2, 1, 4}},
		{"zero scores fill by index", map[int]float64{3: 1}, 5, 4, []int{3, 0, 1, 2}},
		{"k larger than columns", map[int]float64{1: 1}, 2, 10, []int{1, 0}},
		{"empty row", nil, 3, 2, []int{0, 1}},
		{"non-positive k", map[int]float64{0: 1}, 3, 0, nil},
		{"no columns", nil, 0, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := topK(tt.row, tt.cols, tt.k)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("topK() = %v, want %v", got, tt.want)
			}
		})
	}
}
