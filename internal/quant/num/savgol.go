package num

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths y with a least-squares polynomial filter of the
// given odd window and polynomial order. End points are handled by
// fitting the boundary windows and evaluating the fitted polynomial at
// each edge offset, so the output has the same length as the input.
func SavitzkyGolay(y []float64, window, order int) ([]float64, error) {
	n := len(y)
	if window%2 == 0 {
		return nil, fmt.Errorf("savgol: window must be odd, got %d", window)
	}
	if window > n {
		return nil, fmt.Errorf("savgol: window %d exceeds series length %d", window, n)
	}
	if order >= window {
		return nil, fmt.Errorf("savgol: order %d must be < window %d", order, window)
	}

	hat, err := hatMatrix(window, order)
	if err != nil {
		return nil, err
	}
	half := window / 2

	out := make([]float64, n)
	// interior: convolution with the center row of the hat matrix
	for i := half; i < n-half; i++ {
		out[i] = dotWindow(hat, half, y[i-half:i+half+1])
	}
	// edges: polynomial fitted to the boundary windows
	for i := 0; i < half; i++ {
		out[i] = dotWindow(hat, i, y[:window])
		out[n-1-i] = dotWindow(hat, window-1-i, y[n-window:])
	}
	return out, nil
}

// hatMatrix returns H = A (AᵀA)⁻¹ Aᵀ for the Vandermonde design matrix
// of offsets -half..half. Row i of H maps a window of samples to the
// fitted value at offset i-half.
func hatMatrix(window, order int) (*mat.Dense, error) {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		t := float64(i - half)
		v := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, v)
			v *= t
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol: singular design matrix: %w", err)
	}
	var proj mat.Dense
	proj.Mul(a, &inv)
	var hat mat.Dense
	hat.Mul(&proj, a.T())
	return &hat, nil
}

func dotWindow(hat *mat.Dense, row int, y []float64) float64 {
	sum := 0.0
	for k, v := range y {
		sum += hat.At(row, k) * v
	}
	return sum
}
