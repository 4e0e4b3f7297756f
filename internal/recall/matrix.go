// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import (
	"fmt"
	"sort"
)

// Matrix is a growable sparse non-negative matrix stored as an arena of
// rows, each a map from column index to value. Only strictly positive values
// are stored.
type Matrix struct {
	rows []map[int]float64
	cols int
}

// NewMatrix returns an empty 0x0 matrix.
func NewMatrix() *Matrix {
	return &Matrix{rows: make([]map[int]float64, 0)}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return len(m.rows), m.cols
}

// Grow extends the matrix to at least rows x cols with zero entries.
// Shrinking is not supported; smaller values are ignored.
func (m *Matrix) Grow(rows, cols int) {
	for len(m.rows) < rows {
		m.rows = append(m.rows, nil)
	}
	if cols > m.cols {
		m.cols = cols
	}
}

// Add increments cell (r, c) by v. Zero increments leave no entry.
func (m *Matrix) Add(r, c int, v float64) {
	if r < 0 || r >= len(m.rows) || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("recall: cell (%d, %d) outside %dx%d matrix", r, c, len(m.rows), m.cols))
	}
	if v == 0 {
		return
	}
	if m.rows[r] == nil {
		m.rows[r] = make(map[int]float64)
	}
	m.rows[r][c] += v
}

// At returns the value of cell (r, c), zero for empty cells.
func (m *Matrix) At(r, c int) float64 {
	if r < 0 || r >= len(m.rows) {
		return 0
	}
	return m.rows[r][c]
}

// Scale multiplies every stored entry by f. Entries that underflow to zero
// are dropped.
func (m *Matrix) Scale(f float64) {
	for _, row := range m.rows {
		for c, v := range row {
			v *= f
			if v == 0 {
				delete(row, c)
				continue
			}
			row[c] = v
		}
	}
}

// Max returns the largest entry, zero for an all-zero matrix.
func (m *Matrix) Max() float64 {
	var maxVal float64
	for _, row := range m.rows {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal
}

// Normalize divides every entry by the current maximum so the largest entry
// becomes 1. An all-zero matrix is left unchanged.
func (m *Matrix) Normalize() {
	maxVal := m.Max()
	if maxVal == 0 {
		return
	}
	for _, row := range m.rows {
		for c, v := range row {
			row[c] = v / maxVal
		}
	}
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// Row returns a copy of row r's stored entries.
func (m *Matrix) Row(r int) map[int]float64 {
	out := make(map[int]float64, len(m.rows[r]))
	for c, v := range m.rows[r] {
		out[c] = v
	}
	return out
}

// CSR is the compressed sparse row encoding used for persistence.
// Row i's entries live at Indices[IndPtr[i]:IndPtr[i+1]] and the matching
// positions of Data, with column indices ascending.
type CSR struct {
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	IndPtr  []int     `json:"indptr"`
	Indices []int     `json:"indices"`
	Data    []float64 `json:"data"`
}

// ToCSR encodes the matrix.
func (m *Matrix) ToCSR() *CSR {
	nnz := m.NNZ()
	out := &CSR{
		Rows:    len(m.rows),
		Cols:    m.cols,
		IndPtr:  make([]int, 0, len(m.rows)+1),
		Indices: make([]int, 0, nnz),
		Data:    make([]float64, 0, nnz),
	}
	out.IndPtr = append(out.IndPtr, 0)
	for _, row := range m.rows {
		cols := make([]int, 0, len(row))
		for c := range row {
			cols = append(cols, c)
		}
		sort.Ints(cols)
		for _, c := range cols {
			out.Indices = append(out.Indices, c)
			out.Data = append(out.Data, row[c])
		}
		out.IndPtr = append(out.IndPtr, len(out.Indices))
	}
	return out
}

// Validate checks the structural consistency of the encoding.
func (c *CSR) Validate() error {
	if c.Rows < 0 || c.Cols < 0 {
		return fmt.Errorf("csr: negative shape %dx%d", c.Rows, c.Cols)
	}
	if len(c.IndPtr) != c.Rows+1 {
		return fmt.Errorf("csr: indptr length %d, want %d", len(c.IndPtr), c.Rows+1)
	}
	if len(c.Indices) != len(c.Data) {
		return fmt.Errorf("csr: %d indices but %d values", len(c.Indices), len(c.Data))
	}
	if c.IndPtr[0] != 0 || c.IndPtr[c.Rows] != len(c.Indices) {
		return fmt.Errorf("csr: indptr bounds [%d, %d] do not cover %d entries",
			c.IndPtr[0], c.IndPtr[c.Rows], len(c.Indices))
	}
	for i := 0; i < c.Rows; i++ {
		if c.IndPtr[i] > c.IndPtr[i+1] {
			return fmt.Errorf("csr: indptr decreases at row %d", i)
		}
	}
	for i, col := range c.Indices {
		if col < 0 || col >= c.Cols {
			return fmt.Errorf("csr: column %d outside %d columns", col, c.Cols)
		}
		if c.Data[i] < 0 {
			return fmt.Errorf("csr: negative value %f at entry %d", c.Data[i], i)
		}
	}
	return nil
}

// MatrixFromCSR decodes a validated CSR encoding.
func MatrixFromCSR(c *CSR) (*Matrix, error) {
	if c == nil {
		return NewMatrix(), nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m := NewMatrix()
	m.Grow(c.Rows, c.Cols)
	for r := 0; r < c.Rows; r++ {
		for i := c.IndPtr[r]; i < c.IndPtr[r+1]; i++ {
			m.Add(r, c.Indices[i], c.Data[i])
		}
	}
	return m, nil
}
