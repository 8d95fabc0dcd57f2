package core

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Grid is a dense rows×cols field of float64 samples over the environment,
// row 0 at y = res/2 and column 0 at x = res/2. It wraps a gonum dense
// matrix so the simulation engine can sweep whole grids in single passes.
type Grid struct {
	m *mat.Dense
}

// NewGrid returns a zero-filled grid. Degenerate shapes (zero rows or
// columns) yield an empty grid rather than an error.
func NewGrid(rows, cols int) *Grid {
	if rows <= 0 || cols <= 0 {
		return &Grid{}
	}
	return &Grid{m: mat.NewDense(rows, cols, nil)}
}

// Rows returns the number of grid rows.
func (g *Grid) Rows() int {
	if g == nil || g.m == nil {
		return 0
	}
	r, _ := g.m.Dims()
	return r
}

// Cols returns the number of grid columns.
func (g *Grid) Cols() int {
	if g == nil || g.m == nil {
		return 0
	}
	_, c := g.m.Dims()
	return c
}

// Size returns the total number of cells.
func (g *Grid) Size() int { return g.Rows() * g.Cols() }

// At returns the sample at (row, col).
func (g *Grid) At(row, col int) float64 { return g.m.At(row, col) }

// Set stores a sample at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.m.Set(row, col, v) }

// data exposes the backing slice. Grids are always constructed with a
// contiguous stride, so the raw slice covers exactly the cells.
func (g *Grid) data() []float64 {
	if g == nil || g.m == nil {
		return nil
	}
	return g.m.RawMatrix().Data
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	if g == nil || g.m == nil {
		return &Grid{}
	}
	out := NewGrid(g.Rows(), g.Cols())
	copy(out.data(), g.data())
	return out
}

// Fill sets every cell to v and returns the grid.
func (g *Grid) Fill(v float64) *Grid {
	d := g.data()
	for i := range d {
		d[i] = v
	}
	return g
}

// Apply returns a new grid with fn evaluated at every cell.
func (g *Grid) Apply(fn func(float64) float64) *Grid {
	out := g.Clone()
	d := out.data()
	for i, v := range d {
		d[i] = fn(v)
	}
	return out
}

// AddScalar returns a new grid with v added to every cell.
func (g *Grid) AddScalar(v float64) *Grid {
	return g.Apply(func(x float64) float64 { return x + v })
}

// Add returns the element-wise sum g + other.
func (g *Grid) Add(other *Grid) *Grid {
	out := g.Clone()
	d, o := out.data(), other.data()
	for i := range d {
		d[i] += o[i]
	}
	return out
}

// Sub returns the element-wise difference g − other.
func (g *Grid) Sub(other *Grid) *Grid {
	out := g.Clone()
	d, o := out.data(), other.data()
	for i := range d {
		d[i] -= o[i]
	}
	return out
}

// Mean returns the arithmetic mean over all cells, or 0 for an empty grid.
func (g *Grid) Mean() float64 {
	d := g.data()
	if len(d) == 0 {
		return 0
	}
	return stat.Mean(d, nil)
}

// Min returns the smallest sample, or 0 for an empty grid.
func (g *Grid) Min() float64 {
	d := g.data()
	if len(d) == 0 {
		return 0
	}
	return floats.Min(d)
}

// Max returns the largest sample, or 0 for an empty grid.
func (g *Grid) Max() float64 {
	d := g.data()
	if len(d) == 0 {
		return 0
	}
	return floats.Max(d)
}

// CountAtLeast returns the number of cells with value ≥ threshold.
func (g *Grid) CountAtLeast(threshold float64) int {
	n := 0
	for _, v := range g.data() {
		if v >= threshold {
			n++
		}
	}
	return n
}

// MaxReduce returns the element-wise maximum across the given grids. All
// grids must share one shape; nil input yields nil.
func MaxReduce(grids ...*Grid) *Grid {
	if len(grids) == 0 {
		return nil
	}
	out := grids[0].Clone()
	d := out.data()
	for _, g := range grids[1:] {
		o := g.data()
		for i := range d {
			if o[i] > d[i] {
				d[i] = o[i]
			}
		}
	}
	return out
}
