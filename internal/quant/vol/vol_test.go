package vol

import (
	"errors"
	"math"
	"testing"
)

func TestHaganATMLimit(t *testing.T) {
	alpha, rho, nu, beta := 0.25, -0.4, 0.5, 0.5
	f, tau := 450.0, 30.0/365.0

	atm := haganVol(f, f, alpha, rho, nu, beta, tau)
	near := haganVol(f+0.01, f, alpha, rho, nu, beta, tau)
	if math.Abs(atm-near) > 1e-4 {
		t.Fatalf("ATM branch %v disagrees with nearby strike %v", atm, near)
	}
	if atm <= 0 || math.IsNaN(atm) {
		t.Fatalf("ATM vol not positive: %v", atm)
	}
}

func TestSABRRecoversKnownSmile(t *testing.T) {
	alpha, rho, nu, beta := 0.25, -0.4, 0.5, 0.5
	f, tau := 450.0, 30.0/365.0

	strikes := []float64{380, 400, 420, 440, 450, 460, 480, 500, 520}
	ivs := make([]float64, len(strikes))
	for i, k := range strikes {
		ivs[i] = haganVol(k, f, alpha, rho, nu, beta, tau)
	}

	surf, stats, err := Calibrate(strikes, ivs, f, tau, MethodSABR, DefaultConfig())
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if !stats.Success {
		t.Fatal("expected successful fit")
	}
	if stats.RMSE > 1e-3 {
		t.Fatalf("RMSE too large for an exact smile: %v", stats.RMSE)
	}
	for i, k := range strikes {
		got, err := surf.Volatility(k)
		if err != nil {
			t.Fatalf("volatility at %v: %v", k, err)
		}
		if math.Abs(got-ivs[i]) > 5e-3 {
			t.Errorf("strike %v: vol %v want %v", k, got, ivs[i])
		}
	}
}

func TestSplineInterpolatesNodes(t *testing.T) {
	strikes := []float64{400, 420, 440, 460, 480, 500}
	ivs := []float64{0.28, 0.25, 0.22, 0.21, 0.22, 0.24}

	surf, stats, err := Calibrate(strikes, ivs, 450, 30.0/365.0, MethodSpline, Config{})
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if stats.RMSE > 1e-12 {
		t.Fatalf("spline should interpolate exactly, RMSE=%v", stats.RMSE)
	}
	for i, k := range strikes {
		got, _ := surf.Volatility(k)
		if math.Abs(got-ivs[i]) > 1e-12 {
			t.Errorf("node %v: got %v want %v", k, got, ivs[i])
		}
	}
}

func TestSplineExtrapolatesEndSegments(t *testing.T) {
	strikes := []float64{400, 450, 500}
	ivs := []float64{0.30, 0.20, 0.30}

	surf, _, err := Calibrate(strikes, ivs, 450, 30.0/365.0, MethodSpline, Config{})
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	left, _ := surf.Volatility(380)
	right, _ := surf.Volatility(520)
	if math.IsNaN(left) || math.IsNaN(right) {
		t.Fatal("extrapolation produced NaN")
	}
	// the smile opens downward into this wing, so the extension keeps rising
	if left <= ivs[0] {
		t.Errorf("left wing %v should exceed boundary vol %v", left, ivs[0])
	}
	if right <= ivs[2] {
		t.Errorf("right wing %v should exceed boundary vol %v", right, ivs[2])
	}
}

func TestCalibrateTooFewPoints(t *testing.T) {
	_, _, err := Calibrate([]float64{450, 460}, []float64{0.2, 0.21}, 450, 0.1, MethodSpline, Config{})
	var ce *CalibrationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CalibrationError, got %v", err)
	}
	if ce.Valid != 2 || ce.Required != minCalibrationPoints {
		t.Fatalf("unexpected counts: %+v", ce)
	}
}

func TestCalibrateFiltersInvalidQuotes(t *testing.T) {
	strikes := []float64{400, 0, 440, 460, 480, math.NaN()}
	ivs := []float64{0.25, 0.25, -1, 0.21, 0.22, 0.23}

	// only 400, 460 and 480 survive
	surf, _, err := Calibrate(strikes, ivs, 450, 0.1, MethodSpline, Config{})
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	got, _ := surf.Volatility(460)
	if math.Abs(got-0.21) > 1e-12 {
		t.Fatalf("filtered calibration wrong at 460: %v", got)
	}
}

func TestCalibrateCollapsesDuplicateStrikes(t *testing.T) {
	// two contracts quoting the same strike average into one node; a
	// zero-width segment would give the spline NaN coefficients
	strikes := []float64{440, 450, 450, 460, 470}
	ivs := []float64{0.22, 0.20, 0.24, 0.21, 0.23}

	surf, _, err := Calibrate(strikes, ivs, 452, 30.0/365.0, MethodSpline, Config{})
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	got, _ := surf.Volatility(450)
	if math.Abs(got-0.22) > 1e-12 {
		t.Fatalf("duplicate strike vol = %v, want averaged 0.22", got)
	}

	vols, err := surf.Volatilities([]float64{430, 445, 455, 475})
	if err != nil {
		t.Fatalf("volatilities: %v", err)
	}
	for i, v := range vols {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			t.Fatalf("non-finite vol %v at index %d", v, i)
		}
	}
}

func TestDuplicateStrikesCountOnce(t *testing.T) {
	strikes := []float64{450, 450, 460}
	ivs := []float64{0.20, 0.22, 0.21}

	_, _, err := Calibrate(strikes, ivs, 450, 0.1, MethodSpline, Config{})
	var ce *CalibrationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CalibrationError, got %v", err)
	}
	if ce.Valid != 2 {
		t.Fatalf("valid = %d, want 2 after collapsing duplicates", ce.Valid)
	}
}

func TestUncalibratedSurface(t *testing.T) {
	var s SABR
	if _, err := s.Volatility(450); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("expected ErrNotCalibrated, got %v", err)
	}
	var sp Spline
	if _, err := sp.Volatilities([]float64{450}); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("expected ErrNotCalibrated, got %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, _, err := Calibrate([]float64{1, 2, 3}, []float64{0.2, 0.2, 0.2}, 2, 0.1, Method("svi"), Config{})
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
}
