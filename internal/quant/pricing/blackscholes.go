// Package pricing implements closed-form Black-Scholes European option
// pricing with continuous compounding. The functions are pure and
// stateless; callers are responsible for filtering sigma <= 0 or T <= 0
// (those inputs produce NaN).
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.UnitNormal

// Call prices a European call.
//
//	d1 = [ln(S/K) + (r + sigma^2/2) T] / (sigma sqrt(T))
//	d2 = d1 - sigma sqrt(T)
//	C  = S N(d1) - K e^{-rT} N(d2)
func Call(K, S, r, T, sigma float64) float64 {
	d1, d2 := dValues(K, S, r, T, sigma)
	return S*stdNormal.CDF(d1) - K*math.Exp(-r*T)*stdNormal.CDF(d2)
}

// Put prices a European put.
func Put(K, S, r, T, sigma float64) float64 {
	d1, d2 := dValues(K, S, r, T, sigma)
	return K*math.Exp(-r*T)*stdNormal.CDF(-d2) - S*stdNormal.CDF(-d1)
}

// Calls prices a call at every strike with its paired volatility.
// strikes and sigmas must be parallel slices of equal length.
func Calls(strikes []float64, S, r, T float64, sigmas []float64) []float64 {
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		out[i] = Call(k, S, r, T, sigmas[i])
	}
	return out
}

// Puts prices a put at every strike with its paired volatility.
func Puts(strikes []float64, S, r, T float64, sigmas []float64) []float64 {
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		out[i] = Put(k, S, r, T, sigmas[i])
	}
	return out
}

func dValues(K, S, r, T, sigma float64) (d1, d2 float64) {
	if sigma <= 0 || T <= 0 {
		return math.NaN(), math.NaN()
	}
	sqrtT := math.Sqrt(T)
	d1 = (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	return d1, d2
}
