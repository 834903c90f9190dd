// Package stats implements the statistical tests used by the forecasting
// pipeline: unit-root tests, autocorrelation functions, and the Ljung-Box
// residual test.
package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// ADFResult contains the outcome of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64            `json:"statistic"`
	PValue       float64            `json:"p_value"`
	Lags         int                `json:"lags"`
	NObs         int                `json:"n_obs"`
	CriticalVals map[string]float64 `json:"critical_values"`
	IsStationary bool               `json:"is_stationary"`
}

// ADF performs the Augmented Dickey-Fuller unit-root test with a constant
// regression. The null hypothesis is that the series has a unit root; a
// p-value at or below 0.05 rejects it, classifying the series stationary.
func ADF(values []float64, maxLag int) (*ADFResult, error) {
	n := len(values)
	if n < 12 {
		return nil, errors.NewDataError(errors.CodeInsufficientData,
			"ADF test requires at least 12 observations")
	}

	// Schwert's rule of thumb when no lag count is given.
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-2 {
		maxLag = n - 3
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = values[i] - values[i-1]
	}

	// Regression: delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i*delta_y_{t-i}).
	// The test statistic is the t-ratio on beta.
	nObs := len(diff) - maxLag
	if nObs < 10 {
		return nil, errors.NewDataError(errors.CodeInsufficientData,
			"too few observations after lag adjustment")
	}

	k := 2 + maxLag
	X := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)

	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff[t])
		X.Set(i, 0, 1)
		X.Set(i, 1, values[t])
		for j := 1; j <= maxLag; j++ {
			X.Set(i, 1+j, diff[t-j])
		}
	}

	coeffs, se, err := olsWithStdErr(X, y)
	if err != nil {
		return nil, err
	}
	if se[1] == 0 {
		return nil, errors.NewDataError(errors.CodeBadValue,
			"degenerate regressor in ADF regression")
	}
	tStat := coeffs[1] / se[1]

	result := &ADFResult{
		Statistic: tStat,
		PValue:    mackinnonPValue(tStat),
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
	}
	result.IsStationary = result.PValue <= 0.05
	return result, nil
}

// KPSSResult contains the outcome of a KPSS level-stationarity test.
type KPSSResult struct {
	Statistic    float64            `json:"statistic"`
	PValue       float64            `json:"p_value"`
	Lags         int                `json:"lags"`
	CriticalVals map[string]float64 `json:"critical_values"`
	IsStationary bool               `json:"is_stationary"`
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test around a
// constant. The null hypothesis is stationarity, the reverse of ADF.
func KPSS(values []float64, nlags int) (*KPSSResult, error) {
	n := len(values)
	if n < 12 {
		return nil, errors.NewDataError(errors.CodeInsufficientData,
			"KPSS test requires at least 12 observations")
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	residuals := make([]float64, n)
	for i, v := range values {
		residuals[i] = v - mean
	}

	cumSum := make([]float64, n)
	cumSum[0] = residuals[0]
	for i := 1; i < n; i++ {
		cumSum[i] = cumSum[i-1] + residuals[i]
	}

	// Newey-West long-run variance with Bartlett weights.
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	etaSq := 0.0
	for _, cs := range cumSum {
		etaSq += cs * cs
	}
	statistic := etaSq / (float64(n) * float64(n) * s2)

	result := &KPSSResult{
		Statistic: statistic,
		PValue:    kpssPValue(statistic),
		Lags:      nlags,
		CriticalVals: map[string]float64{
			"10%": 0.347,
			"5%":  0.463,
			"1%":  0.739,
		},
	}
	result.IsStationary = result.PValue >= 0.05
	return result, nil
}

// olsWithStdErr runs ordinary least squares and returns coefficients with
// their standard errors.
func olsWithStdErr(X *mat.Dense, y *mat.VecDense) (coeffs, stdErrs []float64, err error) {
	n, k := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if invErr := xtxInv.Inverse(&xtx); invErr != nil {
		return nil, nil, errors.WrapError(invErr, errors.ErrorTypeData, errors.CodeBadValue,
			"singular design matrix in OLS")
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	sse := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		sse += r * r
	}
	if n <= k {
		return nil, nil, errors.NewDataError(errors.CodeInsufficientData,
			"more regressors than observations")
	}
	sigma2 := sse / float64(n-k)

	coeffs = make([]float64, k)
	stdErrs = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrs[i] = math.Sqrt(sigma2 * xtxInv.At(i, i))
	}
	return coeffs, stdErrs, nil
}

// mackinnonPValue approximates the ADF p-value for a constant-only
// regression via MacKinnon's (1994) tabulated surface.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue approximates the KPSS p-value for level stationarity.
func kpssPValue(stat float64) float64 {
	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return math.Min(0.10+(0.347-stat)*0.5, 0.99)
	}
}
