package num

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestLinspace(t *testing.T) {
	xs := Linspace(400, 500, 21)
	if len(xs) != 21 {
		t.Fatalf("expected 21 points, got %d", len(xs))
	}
	if xs[0] != 400 || xs[20] != 500 {
		t.Fatalf("bad endpoints: %v %v", xs[0], xs[20])
	}
	if !approxEqual(xs[1]-xs[0], 5, 1e-12) {
		t.Fatalf("bad spacing %v", xs[1]-xs[0])
	}
}

func TestGradientQuadratic(t *testing.T) {
	// d/dx x^2 = 2x; central differences are exact for quadratics
	xs := Linspace(0, 10, 11)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = x * x
	}
	g := Gradient(ys, xs)
	for i := 1; i < len(xs)-1; i++ {
		if !approxEqual(g[i], 2*xs[i], 1e-9) {
			t.Fatalf("g[%d]=%v want %v", i, g[i], 2*xs[i])
		}
	}
}

func TestGradientNonUniform(t *testing.T) {
	xs := []float64{0, 1, 3, 6, 10}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 3*x*x - 2*x + 1
	}
	g := Gradient(ys, xs)
	for i := 1; i < len(xs)-1; i++ {
		want := 6*xs[i] - 2
		if !approxEqual(g[i], want, 1e-9) {
			t.Fatalf("g[%d]=%v want %v", i, g[i], want)
		}
	}
}

func TestTrapezoidAndCumulative(t *testing.T) {
	xs := Linspace(0, 1, 101)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = x
	}
	if got := Trapezoid(ys, xs); !approxEqual(got, 0.5, 1e-9) {
		t.Fatalf("integral of x over [0,1] = %v, want 0.5", got)
	}
	cum := CumTrapezoid(ys, xs)
	if cum[0] != 0 {
		t.Fatalf("cumulative integral must start at 0, got %v", cum[0])
	}
	if !approxEqual(cum[len(cum)-1], 0.5, 1e-9) {
		t.Fatalf("cumulative endpoint %v, want 0.5", cum[len(cum)-1])
	}
	for i := 1; i < len(cum); i++ {
		if cum[i] < cum[i-1] {
			t.Fatalf("cumulative integral decreased at %d", i)
		}
	}
}

func TestInterpClampsOutsideRange(t *testing.T) {
	xs := []float64{1, 2, 3}
	ys := []float64{10, 20, 30}
	cases := []struct{ x, want float64 }{
		{0, 10},
		{1, 10},
		{1.5, 15},
		{2.5, 25},
		{3, 30},
		{4, 30},
	}
	for _, c := range cases {
		if got := Interp(c.x, xs, ys); !approxEqual(got, c.want, 1e-12) {
			t.Errorf("Interp(%v)=%v want %v", c.x, got, c.want)
		}
	}
}

func TestClipNonNeg(t *testing.T) {
	f := []float64{-1, 0, 2, -0.001}
	ClipNonNeg(f)
	for i, v := range f {
		if v < 0 {
			t.Fatalf("negative value survived at %d: %v", i, v)
		}
	}
	if f[2] != 2 {
		t.Fatalf("positive value altered: %v", f[2])
	}
}

func TestSavitzkyGolayReproducesCubic(t *testing.T) {
	// an order-3 filter must pass cubic polynomials through unchanged,
	// including the edge windows
	xs := Linspace(-5, 5, 41)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = x*x*x - 4*x + 2
	}
	sm, err := SavitzkyGolay(ys, 11, 3)
	if err != nil {
		t.Fatalf("savgol error: %v", err)
	}
	for i := range ys {
		if !approxEqual(sm[i], ys[i], 1e-8) {
			t.Fatalf("cubic distorted at %d: %v want %v", i, sm[i], ys[i])
		}
	}
}

func TestSavitzkyGolayRejectsBadWindow(t *testing.T) {
	ys := make([]float64, 10)
	if _, err := SavitzkyGolay(ys, 4, 3); err == nil {
		t.Fatal("expected error for even window")
	}
	if _, err := SavitzkyGolay(ys, 11, 3); err == nil {
		t.Fatal("expected error for window larger than series")
	}
	if _, err := SavitzkyGolay(ys, 5, 5); err == nil {
		t.Fatal("expected error for order >= window")
	}
}
