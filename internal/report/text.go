// Package report renders pipeline results for human inspection: a text
// summary, a forecast CSV, and a set of diagnostic charts.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hydrostat/resforecast/internal/pipeline"
)

// WriteText renders the run report as human-facing diagnostic text.
func WriteText(w io.Writer, r *pipeline.Report) error {
	fmt.Fprintf(w, "Reservoir storage forecast (run %s)\n", r.RunID)
	fmt.Fprintf(w, "Input: %s\n", r.Input)
	fmt.Fprintf(w, "Observations: %d (%d forward-filled)\n", r.Observations, r.FilledValues)
	fmt.Fprintf(w, "Range: %s to %s, step %s\n\n",
		r.RangeStart.Format("2006-01-02"), r.RangeEnd.Format("2006-01-02"), r.TimeStep)

	fmt.Fprintln(w, "Stationarity")
	fmt.Fprintln(w, "------------")
	for _, sr := range r.Stationarity {
		if sr.ADF != nil {
			fmt.Fprintf(w, "ADF (%s): statistic=%.4f p=%.4f lags=%d stationary=%v\n",
				sr.Label, sr.ADF.Statistic, sr.ADF.PValue, sr.ADF.Lags, sr.ADF.IsStationary)
			for _, level := range []string{"1%", "5%", "10%"} {
				fmt.Fprintf(w, "  critical %-4s %.2f\n", level, sr.ADF.CriticalVals[level])
			}
		}
		if sr.KPSS != nil {
			fmt.Fprintf(w, "KPSS (%s): statistic=%.4f p=%.4f stationary=%v\n",
				sr.Label, sr.KPSS.Statistic, sr.KPSS.PValue, sr.KPSS.IsStationary)
		}
	}

	fmt.Fprintf(w, "\nModel\n-----\n")
	fmt.Fprintf(w, "Selected order: %s (%s=%.2f, %d candidates evaluated)\n",
		r.Order, r.Criterion, r.Score, r.Evaluated)

	fmt.Fprintf(w, "\nHeld-out accuracy (%d observations)\n", r.Metrics.N)
	fmt.Fprintln(w, "-----------------")
	fmt.Fprintf(w, "RMSE: %.4f\n", r.Metrics.RMSE)
	fmt.Fprintf(w, "MAE:  %.4f\n", r.Metrics.MAE)
	if r.Metrics.Degenerate || math.IsNaN(r.Metrics.R2) {
		fmt.Fprintln(w, "R²:   undefined (constant held-out series)")
	} else {
		fmt.Fprintf(w, "R²:   %.4f\n", r.Metrics.R2)
	}

	if len(r.LjungBox) > 0 {
		fmt.Fprintf(w, "\nResidual diagnostics (Ljung-Box)\n")
		fmt.Fprintln(w, "--------------------------------")
		for _, lb := range r.LjungBox {
			fmt.Fprintf(w, "lag %-3d Q=%.4f p=%.4f dof=%d\n",
				lb.Lag, lb.Statistic, lb.PValue, lb.DOF)
		}
	}

	if r.Future != nil {
		fmt.Fprintf(w, "\nForecast (%d steps)\n", r.Future.Horizon())
		fmt.Fprintln(w, "--------")
		for i := range r.Future.Values {
			fmt.Fprintf(w, "%s  %.4f\n",
				r.Future.Timestamps[i].Format("2006-01-02"), r.Future.Values[i])
		}
	}

	fmt.Fprintf(w, "\nCompleted in %s\n", r.Duration.Round(time.Millisecond))
	return nil
}
