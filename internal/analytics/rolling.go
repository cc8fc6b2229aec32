package analytics

import "math"

// mean of v. NaN for an empty slice.
func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// popStd is the population standard deviation (divisor N, not N-1).
func popStd(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)))
}

// OLSSlope fits y = beta*x + c by ordinary least squares and returns beta,
// the closed form Cov(x,y)/Var(x). NaN with fewer than 2 points or when x
// has zero variance.
func OLSSlope(y, x []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN()
	}

	mx := mean(x)
	my := mean(y)

	var cov, varx float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		cov += dx * (y[i] - my)
		varx += dx * dx
	}
	if varx == 0 {
		return math.NaN()
	}
	return cov / varx
}

// Spread is the elementwise residual series y - beta*x.
func Spread(y, x []float64, beta float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - beta*x[i]
	}
	return out
}

// RollingZScore standardizes each point of v against the rolling mean and
// rolling population standard deviation over the trailing window. Points
// before a full window, and windows with zero variance, are NaN.
func RollingZScore(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	for i := range out {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		win := v[i-window+1 : i+1]
		s := popStd(win)
		if s == 0 || math.IsNaN(s) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v[i] - mean(win)) / s
	}
	return out
}

// Pearson is the correlation coefficient of two equal-length slices.
// NaN when undefined (fewer than 2 points or zero variance on a side).
func Pearson(y, x []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN()
	}

	mx := mean(x)
	my := mean(y)

	var cov, varx, vary float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		varx += dx * dx
		vary += dy * dy
	}

	den := math.Sqrt(varx * vary)
	if den == 0 {
		return math.NaN()
	}
	return cov / den
}

// RollingCorr is the trailing-window Pearson correlation of y and x.
// Points before a full window are NaN.
func RollingCorr(y, x []float64, window int) []float64 {
	n := len(y)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if window <= 1 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = Pearson(y[i-window+1:i+1], x[i-window+1:i+1])
	}
	return out
}
