package mix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// savgol applies a Savitzky–Golay filter: each output sample is the value at
// the centre of a least-squares polynomial fit over a sliding window. Edges
// are filled by evaluating the polynomial fitted to the first and last full
// windows, so the output has the same length as the input.
func savgol(data []float64, window, order int) ([]float64, error) {
	if window < 3 || window%2 == 0 {
		return nil, fmt.Errorf("savgol: window must be odd and >= 3, got %d", window)
	}
	if order >= window {
		return nil, fmt.Errorf("savgol: order %d too high for window %d", order, window)
	}
	if len(data) < window {
		return nil, errors.New("savgol: input shorter than window")
	}

	half := window / 2
	nc := order + 1

	// Vandermonde basis over window positions z = -half..half.
	a := mat.NewDense(window, nc, nil)
	for i := 0; i < window; i++ {
		z := float64(i - half)
		p := 1.0
		for k := 0; k < nc; k++ {
			a.Set(i, k, p)
			p *= z
		}
	}

	// Normal equations: coefficients = (AᵀA)⁻¹ Aᵀ y. (AᵀA)⁻¹ Aᵀ is fixed
	// for the window, so precompute it once.
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol: singular design matrix: %w", err)
	}
	var proj mat.Dense // nc x window
	proj.Mul(&inv, a.T())

	// Centre-point smoothing weights: polynomial value at z=0 is just the
	// constant coefficient, i.e. row 0 of the projection.
	weights := mat.Row(nil, 0, &proj)

	out := make([]float64, len(data))

	// Interior: plain convolution with the centre weights.
	for i := half; i < len(data)-half; i++ {
		sum := 0.0
		for j, w := range weights {
			sum += w * data[i-half+j]
		}
		out[i] = sum
	}

	// Edges: fit a polynomial to the first/last window and evaluate it at
	// the uncovered positions.
	fitEdge := func(segment []float64, offsets []int, dst []float64) {
		y := mat.NewVecDense(window, segment)
		var coef mat.VecDense // nc
		coef.MulVec(&proj, y)
		for idx, z := range offsets {
			v := 0.0
			p := 1.0
			for k := 0; k < nc; k++ {
				v += coef.AtVec(k) * p
				p *= float64(z)
			}
			dst[idx] = v
		}
	}

	leadOffsets := make([]int, half)
	for i := range leadOffsets {
		leadOffsets[i] = i - half // positions before the first centre
	}
	fitEdge(data[:window], leadOffsets, out[:half])

	tailOffsets := make([]int, half)
	for i := range tailOffsets {
		tailOffsets[i] = i + 1 // positions after the last centre
	}
	fitEdge(data[len(data)-window:], tailOffsets, out[len(data)-half:])

	return out, nil
}
