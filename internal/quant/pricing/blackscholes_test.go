package pricing

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestCallKnownValue(t *testing.T) {
	// S=100, K=100, r=5%, T=1y, sigma=20% -> C ~ 10.4506
	got := Call(100, 100, 0.05, 1.0, 0.20)
	if !approxEqual(got, 10.4506, 1e-3) {
		t.Fatalf("call price %v, want ~10.4506", got)
	}
}

func TestPutKnownValue(t *testing.T) {
	// same inputs -> P ~ 5.5735
	got := Put(100, 100, 0.05, 1.0, 0.20)
	if !approxEqual(got, 5.5735, 1e-3) {
		t.Fatalf("put price %v, want ~5.5735", got)
	}
}

func TestPutCallParity(t *testing.T) {
	S, r, T, sigma := 450.0, 0.05, 30.0/365.0, 0.20
	for _, K := range []float64{400, 430, 450, 470, 500} {
		c := Call(K, S, r, T, sigma)
		p := Put(K, S, r, T, sigma)
		parity := S - K*math.Exp(-r*T)
		if !approxEqual(c-p, parity, 1e-9) {
			t.Errorf("parity broken at K=%v: C-P=%v want %v", K, c-p, parity)
		}
	}
}

func TestCallMonotoneInStrike(t *testing.T) {
	S, r, T, sigma := 450.0, 0.05, 30.0/365.0, 0.20
	strikes := []float64{400, 420, 440, 460, 480, 500}
	sigmas := []float64{sigma, sigma, sigma, sigma, sigma, sigma}
	prices := Calls(strikes, S, r, T, sigmas)
	for i := 1; i < len(prices); i++ {
		if prices[i] >= prices[i-1] {
			t.Fatalf("call price not decreasing in strike at %d: %v >= %v", i, prices[i], prices[i-1])
		}
	}
}

func TestDegenerateInputsAreNaN(t *testing.T) {
	if !math.IsNaN(Call(100, 100, 0.05, 0, 0.2)) {
		t.Error("expected NaN for T=0")
	}
	if !math.IsNaN(Call(100, 100, 0.05, 1, 0)) {
		t.Error("expected NaN for sigma=0")
	}
}
