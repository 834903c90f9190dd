// Package forecast turns fitted models into horizon-aligned forecasts and
// scores them against held-out actuals.
package forecast

import (
	"math"
	"time"

	"github.com/hydrostat/resforecast/internal/arima"
	"github.com/hydrostat/resforecast/internal/timeseries"
	"github.com/hydrostat/resforecast/pkg/errors"
)

// Result is a point forecast aligned one-to-one with a requested horizon.
type Result struct {
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
	// Lower and Upper are approximate interval bounds derived from the
	// residual variance. Informational only.
	Lower []float64 `json:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty"`
}

// Horizon returns the forecast length.
func (r *Result) Horizon() int {
	return len(r.Values)
}

// Run produces point forecasts for exactly horizon steps beyond the series
// the model was fitted on. Future timestamps continue the series at its
// inferred time step (median of consecutive deltas for irregular series).
func Run(model *arima.Model, series *timeseries.Series, horizon int) (*Result, error) {
	if horizon < 1 {
		return nil, errors.WrapError(errors.ErrInvalidHorizon, errors.ErrorTypeValidation,
			errors.CodeInvalidHorizon, "horizon must be at least 1")
	}

	values, err := model.Predict(horizon)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Timestamps: series.FutureTimestamps(horizon),
		Values:     values,
	}
	result.Lower, result.Upper = intervals(values, model.Variance, 1.96)
	return result, nil
}

// intervals computes widening z-score bounds around the point forecasts.
// Horizon-h variance is approximated as h times the one-step residual
// variance.
func intervals(values []float64, variance, z float64) (lower, upper []float64) {
	if variance <= 0 || math.IsNaN(variance) {
		return nil, nil
	}
	lower = make([]float64, len(values))
	upper = make([]float64, len(values))
	for h, v := range values {
		margin := z * math.Sqrt(variance*float64(h+1))
		lower[h] = v - margin
		upper[h] = v + margin
	}
	return lower, upper
}
