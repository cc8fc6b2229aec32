package analytics

import (
	"math"
	"testing"
)

// lcgNoise returns n deterministic pseudo-random values in [-0.5, 0.5).
func lcgNoise(seed int64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		seed = (seed*1103515245 + 12345) % (1 << 31)
		out[i] = float64(seed)/float64(1<<31) - 0.5
	}
	return out
}

func TestADFShortSeries(t *testing.T) {
	res := ADF([]float64{1, 2, 3, 4, 5})
	if res.Statistic != nil || res.PValue != nil || res.UsedLag != nil || res.NObs != nil {
		t.Error("Expected all-null result for a short series")
	}
}

func TestADFDropsNaNs(t *testing.T) {
	// Nine finite values padded with NaNs still falls under the minimum.
	v := []float64{1, 2, 1, 2, 1, 2, 1, 2, 1, math.NaN(), math.NaN()}
	res := ADF(v)
	if res.Statistic != nil {
		t.Error("Expected all-null result after NaN filtering")
	}
}

func TestADFMeanReverting(t *testing.T) {
	// Strongly mean-reverting AR(1): v_t = 0.5*v_{t-1} + noise. The unit-root
	// hypothesis must be rejected decisively.
	noise := lcgNoise(42, 120)
	v := make([]float64, len(noise))
	for i := 1; i < len(v); i++ {
		v[i] = 0.5*v[i-1] + noise[i]
	}

	res := ADF(v)
	if res.Statistic == nil || res.PValue == nil || res.UsedLag == nil || res.NObs == nil {
		t.Fatal("Expected a populated result")
	}
	if *res.Statistic >= -3 {
		t.Errorf("Expected a strongly negative statistic, got %v", *res.Statistic)
	}
	if *res.PValue >= 0.05 {
		t.Errorf("Expected p-value below 0.05, got %v", *res.PValue)
	}
	if *res.PValue < 0 || *res.PValue > 1 {
		t.Errorf("p-value out of range: %v", *res.PValue)
	}

	maxLag := int(math.Floor(12 * math.Pow(float64(len(v))/100.0, 0.25)))
	if *res.UsedLag < 0 || *res.UsedLag > maxLag {
		t.Errorf("Lag %d outside 0..%d", *res.UsedLag, maxLag)
	}
	if *res.NObs <= 0 || *res.NObs >= len(v) {
		t.Errorf("Implausible observation count %d for %d inputs", *res.NObs, len(v))
	}
}

func TestMacKinnonP(t *testing.T) {
	// Saturation outside the tabulated range.
	if p := mackinnonP(5); p != 1.0 {
		t.Errorf("Expected p=1 above tau max, got %v", p)
	}
	if p := mackinnonP(-25); p != 0.0 {
		t.Errorf("Expected p=0 below tau min, got %v", p)
	}

	// Known critical values for the constant-only case.
	if p := mackinnonP(-3.43); p < 0.005 || p > 0.015 {
		t.Errorf("Expected p near 0.01 at the 1%% critical value, got %v", p)
	}
	if p := mackinnonP(-2.86); p < 0.04 || p > 0.06 {
		t.Errorf("Expected p near 0.05 at the 5%% critical value, got %v", p)
	}

	// Monotone in the statistic.
	if !(mackinnonP(-5) < mackinnonP(-2) && mackinnonP(-2) < mackinnonP(0)) {
		t.Error("Expected p-value monotone in the statistic")
	}
}

func TestOLSFitSimpleRegression(t *testing.T) {
	// y = 4 + 3x plus tiny noise: the fit must recover both coefficients.
	x := [][]float64{}
	y := []float64{}
	noise := lcgNoise(7, 20)
	for i := 0; i < 20; i++ {
		xi := float64(i)
		x = append(x, []float64{xi, 1})
		y = append(y, 3*xi+4+0.01*noise[i])
	}

	fit, ok := olsFit(y, x)
	if !ok {
		t.Fatal("Fit failed")
	}
	if math.Abs(fit.coefs[0]-3) > 0.01 {
		t.Errorf("Expected slope near 3, got %v", fit.coefs[0])
	}
	if math.Abs(fit.coefs[1]-4) > 0.01 {
		t.Errorf("Expected intercept near 4, got %v", fit.coefs[1])
	}
	if fit.nobs != 20 {
		t.Errorf("Expected 20 observations, got %d", fit.nobs)
	}
	if fit.stderrs[0] <= 0 || fit.stderrs[1] <= 0 {
		t.Error("Expected positive standard errors")
	}
}

func TestInvertSingular(t *testing.T) {
	if _, ok := invert([][]float64{{1, 2}, {2, 4}}); ok {
		t.Error("Expected singular matrix to fail inversion")
	}
}
