// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   • Provide small, deterministic fixtures for the kernels.
//   • Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/katalvlaran/supereeg/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions.
// Use hide{X} to force the non-*Dense (fallback) paths and compare them with
// the fast paths.
type hide struct{ matrix.Matrix }

// mustDense allocates an r×c *Dense or aborts.
func mustDense(tb testing.TB, r, c int) *matrix.Dense {
	tb.Helper()
	m, err := matrix.NewDense(r, c)
	if err != nil {
		tb.Fatalf("NewDense(%d,%d): %v", r, c, err)
	}

	return m
}

// filled builds an r×c *Dense from row-major data or aborts.
func filled(tb testing.TB, r, c int, data []float64) *matrix.Dense {
	tb.Helper()
	m, err := matrix.NewDenseFrom(r, c, data)
	if err != nil {
		tb.Fatalf("NewDenseFrom(%d,%d): %v", r, c, err)
	}

	return m
}

// mustAt reads (i,j) or aborts.
func mustAt(tb testing.TB, m matrix.Matrix, i, j int) float64 {
	tb.Helper()
	v, err := m.At(i, j)
	if err != nil {
		tb.Fatalf("At(%d,%d): %v", i, j, err)
	}

	return v
}

// fillRand fills m with uniform values in [-1,1) from a seeded source.
func fillRand(tb testing.TB, m *matrix.Dense, seed int64) {
	tb.Helper()
	rng := rand.New(rand.NewSource(seed))
	r, c := m.Shape()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if err := m.Set(i, j, rng.Float64()*2-1); err != nil {
				tb.Fatal(err)
			}
		}
	}
}

// compareClose asserts AllClose(a,b,rtol,atol).
func compareClose(tb testing.TB, a, b matrix.Matrix, rtol, atol float64) {
	tb.Helper()
	ok, err := matrix.AllClose(a, b, rtol, atol)
	if err != nil {
		tb.Fatalf("AllClose: %v", err)
	}
	if !ok {
		tb.Fatalf("matrices differ beyond rtol=%g atol=%g\nA=\n%v\nB=\n%v", rtol, atol, a, b)
	}
}

func sliceClose(tb testing.TB, got, want []float64, tol float64) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("len=%d want %d", len(got), len(want))
	}
	for k := range got {
		if math.Abs(got[k]-want[k]) > tol {
			tb.Fatalf("[%d]=%g want %g", k, got[k], want[k])
		}
	}
}
