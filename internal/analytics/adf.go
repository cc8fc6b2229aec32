package analytics

import (
	"math"

	"github.com/mzare-q/pairstream/internal/model"
)

// minADFObs is the minimum series length for a meaningful test.
const minADFObs = 10

// ADF runs an augmented Dickey-Fuller unit-root test with a constant term:
//
//	Δv_t = α + γ·v_{t-1} + Σ δ_i·Δv_{t-i} + ε_t
//
// The reported statistic is the t-statistic of γ. The lag order is chosen
// by minimizing AIC over 0..⌊12·(n/100)^0.25⌋, re-estimating at the chosen
// lag on the widest sample it allows. The p-value uses the MacKinnon (1994)
// regression-surface approximation for the constant-only case.
//
// Series shorter than 10 observations (after dropping NaNs) produce an
// all-null result.
func ADF(series []float64) model.ADFResult {
	v := make([]float64, 0, len(series))
	for _, x := range series {
		if !math.IsNaN(x) {
			v = append(v, x)
		}
	}

	n := len(v)
	if n < minADFObs {
		return model.ADFResult{}
	}

	diff := make([]float64, n-1)
	for i := range diff {
		diff[i] = v[i+1] - v[i]
	}

	maxLag := int(math.Floor(12 * math.Pow(float64(n)/100.0, 0.25)))
	// Keep enough rows for the largest candidate regression.
	if cap := (n-1)/2 - 2; maxLag > cap {
		maxLag = cap
	}
	if maxLag < 0 {
		maxLag = 0
	}

	// Lag selection on a fixed sample: every candidate is fit on the rows
	// left after trimming maxLag, so the AICs are comparable.
	bestLag := 0
	bestAIC := math.Inf(1)
	for k := 0; k <= maxLag; k++ {
		fit, ok := adfFit(v, diff, k, maxLag)
		if !ok {
			continue
		}
		if fit.aic < bestAIC {
			bestAIC = fit.aic
			bestLag = k
		}
	}

	// Final estimate at the chosen lag on the widest sample it allows.
	fit, ok := adfFit(v, diff, bestLag, bestLag)
	if !ok || fit.stderrs[0] == 0 {
		return model.ADFResult{}
	}

	stat := fit.coefs[0] / fit.stderrs[0]
	p := mackinnonP(stat)

	return model.ADFResult{
		Statistic: model.Float(stat),
		PValue:    model.Float(p),
		UsedLag:   model.Int(bestLag),
		NObs:      model.Int(fit.nobs),
	}
}

type olsResult struct {
	coefs   []float64
	stderrs []float64
	nobs    int
	aic     float64
}

// adfFit estimates the ADF regression with k lagged differences, trimming
// the sample by trim rows (trim >= k).
func adfFit(v, diff []float64, k, trim int) (olsResult, bool) {
	m := len(diff) - trim
	p := k + 2 // level coefficient + constant + k lagged diffs
	if m <= p {
		return olsResult{}, false
	}

	y := make([]float64, m)
	x := make([][]float64, m)
	for r := 0; r < m; r++ {
		t := trim + r
		row := make([]float64, p)
		row[0] = v[t] // lagged level: v_{t-1} relative to Δv_t
		row[1] = 1
		for j := 1; j <= k; j++ {
			row[1+j] = diff[t-j]
		}
		y[r] = diff[t]
		x[r] = row
	}

	return olsFit(y, x)
}

// olsFit solves the normal equations for a small multiple regression and
// returns coefficients, standard errors and the Gaussian AIC.
func olsFit(y []float64, x [][]float64) (olsResult, bool) {
	m := len(y)
	p := len(x[0])

	// X'X and X'y.
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := 0; i < p; i++ {
		xtx[i] = make([]float64, p)
	}
	for r := 0; r < m; r++ {
		for i := 0; i < p; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < p; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < p; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, ok := invert(xtx)
	if !ok {
		return olsResult{}, false
	}

	coefs := make([]float64, p)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			coefs[i] += inv[i][j] * xty[j]
		}
	}

	var ssr float64
	for r := 0; r < m; r++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += coefs[i] * x[r][i]
		}
		resid := y[r] - pred
		ssr += resid * resid
	}

	if m <= p || ssr <= 0 {
		return olsResult{}, false
	}

	sigma2 := ssr / float64(m-p)
	stderrs := make([]float64, p)
	for i := 0; i < p; i++ {
		stderrs[i] = math.Sqrt(sigma2 * inv[i][i])
	}

	nf := float64(m)
	llf := -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	aic := -2*llf + 2*float64(p)

	return olsResult{coefs: coefs, stderrs: stderrs, nobs: m, aic: aic}, true
}

// invert computes the inverse of a small symmetric positive matrix by
// Gauss-Jordan elimination with partial pivoting.
func invert(a [][]float64) ([][]float64, bool) {
	p := len(a)
	aug := make([][]float64, p)
	for i := 0; i < p; i++ {
		aug[i] = make([]float64, 2*p)
		copy(aug[i], a[i])
		aug[i][p+i] = 1
	}

	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		pv := aug[col][col]
		for j := 0; j < 2*p; j++ {
			aug[col][j] /= pv
		}
		for r := 0; r < p; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 2*p; j++ {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}

	inv := make([][]float64, p)
	for i := 0; i < p; i++ {
		inv[i] = aug[i][p:]
	}
	return inv, true
}

// MacKinnon (1994) approximation for the Dickey-Fuller distribution,
// constant-only regression, one series.
var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

const (
	tauStar = -1.61
	tauMax  = 2.74
	tauMin  = -18.83
)

func mackinnonP(stat float64) float64 {
	if stat > tauMax {
		return 1.0
	}
	if stat < tauMin {
		return 0.0
	}

	coefs := tauLargeP
	if stat <= tauStar {
		coefs = tauSmallP
	}

	// Horner evaluation of c0 + c1*stat + c2*stat^2 (+ c3*stat^3).
	val := 0.0
	for i := len(coefs) - 1; i >= 0; i-- {
		val = val*stat + coefs[i]
	}
	return normCDF(val)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
