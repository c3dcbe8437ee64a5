// Package num holds the shared vector math used by the density pipeline:
// grid construction, finite differences, trapezoidal quadrature, linear
// interpolation and Savitzky-Golay smoothing. All functions operate on
// plain []float64 and never mutate their inputs unless documented.
package num

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

// Linspace returns n equally spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Gradient computes dy/dx on a possibly non-uniform grid using a
// second-order central difference in the interior and one-sided
// differences at the ends.
func Gradient(y, x []float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = (y[1] - y[0]) / (x[1] - x[0])
	out[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		out[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}
	return out
}

// Trapezoid integrates f over x with the trapezoidal rule.
func Trapezoid(f, x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, f)
}

// CumTrapezoid returns the running trapezoidal integral of f over x,
// with out[0] = 0.
func CumTrapezoid(f, x []float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + 0.5*(f[i]+f[i-1])*(x[i]-x[i-1])
	}
	return out
}

// Interp linearly interpolates the curve (xs, ys) at x. Values outside
// the range clamp to the end points. xs must be ascending.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	// binary search for the bracketing segment
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + t*(ys[hi]-ys[lo])
}

// InterpSlice interpolates (xs, ys) at every point of grid.
func InterpSlice(grid, xs, ys []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = Interp(x, xs, ys)
	}
	return out
}

// ClipNonNeg replaces negative entries with zero, in place, and returns
// the slice for chaining.
func ClipNonNeg(f []float64) []float64 {
	for i, v := range f {
		if v < 0 {
			f[i] = 0
		}
	}
	return f
}
