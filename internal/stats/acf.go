package stats

import (
	"math"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// ACF returns the sample autocorrelation function for lags 0..maxLag.
func ACF(values []float64, maxLag int) ([]float64, error) {
	n := len(values)
	if n < 2 {
		return nil, errors.NewDataError(errors.CodeInsufficientData,
			"ACF requires at least 2 observations")
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil, errors.NewValidationError(errors.CodeOutOfRange, "negative lag")
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	c0 := 0.0
	for _, v := range values {
		d := v - mean
		c0 += d * d
	}
	if c0 == 0 {
		return nil, errors.NewDataError(errors.CodeBadValue,
			"constant series has undefined autocorrelation")
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / c0
	}
	return acf, nil
}

// PACF returns the partial autocorrelation function for lags 0..maxLag
// computed with the Durbin-Levinson recursion.
func PACF(values []float64, maxLag int) ([]float64, error) {
	acf, err := ACF(values, maxLag)
	if err != nil {
		return nil, err
	}
	maxLag = len(acf) - 1
	if maxLag < 1 {
		return []float64{1}, nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}
	phi[1][1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
			den -= phi[k-1][j] * acf[j]
		}
		if den == 0 {
			pacf[k] = 0
			continue
		}
		phi[k][k] = num / den
		pacf[k] = phi[k][k]
		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}
	return pacf, nil
}

// ConfidenceBound returns the two-sided 95% white-noise bound for sample
// autocorrelations of a series of length n.
func ConfidenceBound(n int) float64 {
	if n <= 0 {
		return math.NaN()
	}
	return 1.96 / math.Sqrt(float64(n))
}
