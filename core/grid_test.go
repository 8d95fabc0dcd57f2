package core

import (
	"math"
	"testing"
)

func TestGridBasics(t *testing.T) {
	g := NewGrid(3, 4)
	if g.Rows() != 3 || g.Cols() != 4 || g.Size() != 12 {
		t.Fatalf("unexpected shape %dx%d (size %d)", g.Rows(), g.Cols(), g.Size())
	}

	g.Set(1, 2, -87.5)
	if v := g.At(1, 2); v != -87.5 {
		t.Fatalf("At(1,2) = %v, want -87.5", v)
	}

	// Clone is independent of the original.
	c := g.Clone()
	c.Set(1, 2, 0)
	if g.At(1, 2) != -87.5 {
		t.Fatalf("clone mutation leaked into the original")
	}
}

func TestGridDegenerateShapes(t *testing.T) {
	for _, g := range []*Grid{NewGrid(0, 5), NewGrid(5, 0), NewGrid(-1, -1)} {
		if g.Size() != 0 {
			t.Fatalf("expected empty grid, got size %d", g.Size())
		}
		if g.Mean() != 0 || g.Min() != 0 || g.Max() != 0 {
			t.Fatalf("expected zero statistics on an empty grid")
		}
	}
}

func TestGridArithmetic(t *testing.T) {
	a := NewGrid(2, 2).Fill(10)
	b := NewGrid(2, 2).Fill(3)

	sum := a.Add(b)
	diff := a.Sub(b)
	if sum.At(0, 0) != 13 || diff.At(1, 1) != 7 {
		t.Fatalf("Add/Sub wrong: %v / %v", sum.At(0, 0), diff.At(1, 1))
	}
	// Inputs untouched.
	if a.At(0, 0) != 10 || b.At(0, 0) != 3 {
		t.Fatalf("Add/Sub mutated an operand")
	}

	if v := a.AddScalar(-2.5).At(0, 1); v != 7.5 {
		t.Fatalf("AddScalar = %v, want 7.5", v)
	}
	if v := a.Apply(func(x float64) float64 { return x * x }).At(1, 0); v != 100 {
		t.Fatalf("Apply = %v, want 100", v)
	}
}

func TestGridStatistics(t *testing.T) {
	g := NewGrid(2, 2)
	g.Set(0, 0, -100)
	g.Set(0, 1, -90)
	g.Set(1, 0, -80)
	g.Set(1, 1, -70)

	if m := g.Mean(); math.Abs(m-(-85)) > 1e-12 {
		t.Fatalf("Mean = %v, want -85", m)
	}
	if g.Min() != -100 || g.Max() != -70 {
		t.Fatalf("Min/Max = %v/%v, want -100/-70", g.Min(), g.Max())
	}
	if n := g.CountAtLeast(-90); n != 3 {
		t.Fatalf("CountAtLeast(-90) = %d, want 3", n)
	}
	if n := g.CountAtLeast(-60); n != 0 {
		t.Fatalf("CountAtLeast(-60) = %d, want 0", n)
	}
}

func TestMaxReduce(t *testing.T) {
	a := NewGrid(2, 2).Fill(-100)
	a.Set(0, 0, -50)
	b := NewGrid(2, 2).Fill(-80)

	best := MaxReduce(a, b)
	if best.At(0, 0) != -50 {
		t.Fatalf("expected a's stronger cell to win, got %v", best.At(0, 0))
	}
	if best.At(1, 1) != -80 {
		t.Fatalf("expected b's stronger cell to win, got %v", best.At(1, 1))
	}

	if MaxReduce() != nil {
		t.Fatalf("expected nil for no input grids")
	}
}
