package forecast

import (
	"fmt"
	"math"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// Metrics holds forecast accuracy measures against held-out actuals.
// When the actual series is constant, SS_tot is zero and R² is undefined;
// that is reported as Degenerate=true with R² NaN rather than an error, so
// the pipeline can finish and surface the condition in its report.
type Metrics struct {
	RMSE       float64 `json:"rmse"`
	MAE        float64 `json:"mae"`
	R2         float64 `json:"r2"`
	N          int     `json:"n"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// Evaluate computes RMSE, MAE, and R² between aligned actual and forecast
// sequences. Mismatched lengths are an error, never a silent truncation.
func Evaluate(actual, predicted []float64) (*Metrics, error) {
	if len(actual) != len(predicted) {
		return nil, errors.WrapError(errors.ErrLengthMismatch, errors.ErrorTypeValidation,
			errors.CodeLengthMismatch,
			fmt.Sprintf("actual=%d forecast=%d", len(actual), len(predicted)))
	}
	if len(actual) == 0 {
		return nil, errors.NewDataError(errors.CodeNoData, "nothing to evaluate")
	}

	n := float64(len(actual))

	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= n

	var sse, sae, sst float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		sse += diff * diff
		sae += math.Abs(diff)
		dev := actual[i] - mean
		sst += dev * dev
	}

	m := &Metrics{
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
		N:    len(actual),
	}
	if sst == 0 {
		m.R2 = math.NaN()
		m.Degenerate = true
	} else {
		m.R2 = 1 - sse/sst
	}
	return m, nil
}
