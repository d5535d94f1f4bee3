package mix

import (
	"math"
	"testing"
)

func TestSavgol_PreservesConstant(t *testing.T) {
	t.Parallel()

	data := make([]float64, 500)
	for i := range data {
		data[i] = 0.7
	}
	out, err := savgol(data, 11, 3)
	if err != nil {
		t.Fatalf("savgol() error: %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("output length = %d, want %d", len(out), len(data))
	}
	for i, v := range out {
		if math.Abs(v-0.7) > 1e-9 {
			t.Fatalf("out[%d] = %v, want 0.7", i, v)
		}
	}
}

func TestSavgol_PreservesPolynomial(t *testing.T) {
	t.Parallel()

	// A cubic is reproduced exactly by a cubic fit, edges included.
	data := make([]float64, 200)
	for i := range data {
		x := float64(i) / 100
		data[i] = 0.1*x*x*x - 0.5*x*x + x
	}
	out, err := savgol(data, 21, 3)
	if err != nil {
		t.Fatalf("savgol() error: %v", err)
	}
	for i := range out {
		if math.Abs(out[i]-data[i]) > 1e-6 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], data[i])
		}
	}
}

func TestSavgol_SmoothsStep(t *testing.T) {
	t.Parallel()

	data := make([]float64, 400)
	for i := 200; i < 400; i++ {
		data[i] = 1
	}
	out, err := savgol(data, 41, 3)
	if err != nil {
		t.Fatalf("savgol() error: %v", err)
	}

	// The hard step must be replaced by a gradual transition.
	maxJump := 0.0
	for i := 1; i < len(out); i++ {
		if d := math.Abs(out[i] - out[i-1]); d > maxJump {
			maxJump = d
		}
	}
	if maxJump > 0.5 {
		t.Errorf("max sample-to-sample jump = %v, want smoothed below 0.5", maxJump)
	}
}

func TestSavgol_Validation(t *testing.T) {
	t.Parallel()

	data := make([]float64, 100)

	if _, err := savgol(data, 10, 3); err == nil {
		t.Error("savgol() accepted an even window")
	}
	if _, err := savgol(data, 1, 0); err == nil {
		t.Error("savgol() accepted a window below 3")
	}
	if _, err := savgol(data, 5, 5); err == nil {
		t.Error("savgol() accepted order >= window")
	}
	if _, err := savgol(data[:3], 5, 3); err == nil {
		t.Error("savgol() accepted input shorter than the window")
	}
}
