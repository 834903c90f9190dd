package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// LjungBoxResult contains the Ljung-Box Q statistic and p-value at one lag.
type LjungBoxResult struct {
	Lag       int     `json:"lag"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	DOF       int     `json:"degrees_of_freedom"`
}

// LjungBox performs the Ljung-Box portmanteau test for autocorrelation up
// to the given lag. fitdf is the number of parameters estimated by the
// model whose residuals are being tested (p+q for ARIMA) and is removed
// from the degrees of freedom.
func LjungBox(residuals []float64, lag, fitdf int) (*LjungBoxResult, error) {
	n := len(residuals)
	if n < 10 {
		return nil, errors.NewDataError(errors.CodeInsufficientData,
			"Ljung-Box test requires at least 10 observations")
	}
	if lag < 1 {
		return nil, errors.NewValidationError(errors.CodeOutOfRange,
			"Ljung-Box lag must be at least 1")
	}
	if lag >= n {
		lag = n - 1
	}

	acf, err := ACF(residuals, lag)
	if err != nil {
		return nil, err
	}

	q := 0.0
	for k := 1; k <= lag; k++ {
		q += acf[k] * acf[k] / float64(n-k)
	}
	q *= float64(n) * float64(n+2)

	dof := lag - fitdf
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}
	return &LjungBoxResult{
		Lag:       lag,
		Statistic: q,
		PValue:    1 - chi.CDF(q),
		DOF:       dof,
	}, nil
}

// LjungBoxAtLags runs the Ljung-Box test at each of the given lags,
// skipping lags the residual sample is too short for.
func LjungBoxAtLags(residuals []float64, lags []int, fitdf int) ([]*LjungBoxResult, error) {
	results := make([]*LjungBoxResult, 0, len(lags))
	for _, lag := range lags {
		res, err := LjungBox(residuals, lag, fitdf)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
