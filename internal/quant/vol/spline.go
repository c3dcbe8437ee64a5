package vol

// Spline is a natural cubic spline through the market (strike, iv)
// pairs. Queries beyond the quoted strike range evaluate the end
// segment's polynomial, so the wings extend smoothly instead of
// clamping to the boundary vol.
type Spline struct {
	xs []float64
	ys []float64
	// per-segment cubic coefficients: y = a + b*dx + c*dx^2 + d*dx^3
	a, b, c, d []float64

	calibrated bool
}

func (s *Spline) Volatility(strike float64) (float64, error) {
	if !s.calibrated {
		return 0, ErrNotCalibrated
	}
	return s.eval(strike), nil
}

func (s *Spline) Volatilities(strikes []float64) ([]float64, error) {
	if !s.calibrated {
		return nil, ErrNotCalibrated
	}
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		out[i] = s.eval(k)
	}
	return out, nil
}

func (s *Spline) eval(x float64) float64 {
	n := len(s.xs)
	// locate the segment; out-of-range strikes use the end segments
	seg := 0
	switch {
	case x <= s.xs[0]:
		seg = 0
	case x >= s.xs[n-1]:
		seg = n - 2
	default:
		lo, hi := 0, n-1
		for hi-lo > 1 {
			mid := (lo + hi) / 2
			if s.xs[mid] <= x {
				lo = mid
			} else {
				hi = mid
			}
		}
		seg = lo
	}
	dx := x - s.xs[seg]
	return s.a[seg] + dx*(s.b[seg]+dx*(s.c[seg]+dx*s.d[seg]))
}

// calibrateSpline interpolates the quotes exactly, so the fit error is
// zero by construction and the interesting quality signal is whatever
// the caller sees on the evaluation grid.
func calibrateSpline(strikes, ivs []float64) (Surface, FitStats, error) {
	n := len(strikes)
	s := &Spline{
		xs: strikes,
		ys: ivs,
		a:  make([]float64, n-1),
		b:  make([]float64, n-1),
		c:  make([]float64, n-1),
		d:  make([]float64, n-1),
	}

	// natural boundary second derivatives via the tridiagonal system
	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = strikes[i+1] - strikes[i]
	}
	// Thomas algorithm on the interior unknowns m[1..n-2], m[0]=m[n-1]=0
	m := make([]float64, n)
	if n > 2 {
		diag := make([]float64, n)
		rhs := make([]float64, n)
		for i := 1; i < n-1; i++ {
			diag[i] = 2 * (h[i-1] + h[i])
			rhs[i] = 6 * ((ivs[i+1]-ivs[i])/h[i] - (ivs[i]-ivs[i-1])/h[i-1])
		}
		for i := 2; i < n-1; i++ {
			w := h[i-1] / diag[i-1]
			diag[i] -= w * h[i-1]
			rhs[i] -= w * rhs[i-1]
		}
		for i := n - 2; i >= 1; i-- {
			m[i] = (rhs[i] - h[i]*m[i+1]) / diag[i]
		}
	}

	for i := 0; i < n-1; i++ {
		s.a[i] = ivs[i]
		s.b[i] = (ivs[i+1]-ivs[i])/h[i] - h[i]/6*(2*m[i]+m[i+1])
		s.c[i] = m[i] / 2
		s.d[i] = (m[i+1] - m[i]) / (6 * h[i])
	}
	s.calibrated = true

	rmse, mae := fitQuality(s, strikes, ivs)
	return s, FitStats{Method: MethodSpline, RMSE: rmse, MAE: mae, Success: true}, nil
}
