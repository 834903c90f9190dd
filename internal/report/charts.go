package report

import (
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hydrostat/resforecast/internal/forecast"
	"github.com/hydrostat/resforecast/internal/pipeline"
	"github.com/hydrostat/resforecast/internal/stats"
	"github.com/hydrostat/resforecast/internal/timeseries"
	"github.com/hydrostat/resforecast/pkg/errors"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// SaveCharts writes the diagnostic chart set as PNG files into dir:
// the observed series, the differenced series, ACF/PACF bars, the forecast
// overlay, and the residual sequence.
func SaveCharts(r *pipeline.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapError(err, errors.ErrorTypeData, errors.CodeInvalidFormat, dir)
	}

	charts := []struct {
		name string
		fn   func(*pipeline.Report) (*plot.Plot, error)
	}{
		{"series.png", seriesChart},
		{"differenced.png", differencedChart},
		{"acf_pacf.png", acfChart},
		{"forecast.png", forecastChart},
		{"residuals.png", residualChart},
	}
	for _, c := range charts {
		p, err := c.fn(r)
		if err != nil {
			return err
		}
		if err := p.Save(chartWidth, chartHeight, filepath.Join(dir, c.name)); err != nil {
			return errors.WrapError(err, errors.ErrorTypeInternal,
				errors.CodeInternalError, c.name)
		}
	}
	return nil
}

func seriesChart(r *pipeline.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Reservoir storage"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Storage"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	line, err := plotter.NewLine(seriesXY(r.Series))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "series line")
	}
	p.Add(line)
	return p, nil
}

func differencedChart(r *pipeline.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "First-differenced series"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Change"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	line, err := plotter.NewLine(seriesXY(r.Diffed))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "diff line")
	}
	p.Add(line)
	return p, nil
}

func acfChart(r *pipeline.Report) (*plot.Plot, error) {
	const maxLag = 24

	acf, err := stats.ACF(r.Series.Values, maxLag)
	if err != nil {
		return nil, err
	}
	pacf, err := stats.PACF(r.Series.Values, maxLag)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "ACF and PACF"
	p.X.Label.Text = "Lag"

	acfBars, err := plotter.NewBarChart(plotter.Values(acf[1:]), vg.Points(6))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "acf bars")
	}
	pacfBars, err := plotter.NewBarChart(plotter.Values(pacf[1:]), vg.Points(6))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "pacf bars")
	}
	pacfBars.Offset = vg.Points(6)
	pacfBars.Color = plotter.DefaultLineStyle.Color

	p.Add(acfBars, pacfBars)
	p.Legend.Add("ACF", acfBars)
	p.Legend.Add("PACF", pacfBars)
	p.Legend.Top = true
	return p, nil
}

func forecastChart(r *pipeline.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Forecast overlay"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Storage"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	observed, err := plotter.NewLine(seriesXY(r.Series))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "observed line")
	}

	holdout, err := plotter.NewLine(forecastXY(r.Holdout))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "holdout line")
	}
	holdout.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	future, err := plotter.NewLine(forecastXY(r.Future))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "future line")
	}
	future.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	p.Add(observed, holdout, future)
	p.Legend.Add("observed", observed)
	p.Legend.Add("held-out forecast", holdout)
	p.Legend.Add("future forecast", future)
	p.Legend.Top = true

	if len(r.Future.Lower) == len(r.Future.Values) && len(r.Future.Lower) > 0 {
		for _, bound := range [][]float64{r.Future.Lower, r.Future.Upper} {
			pts := make(plotter.XYs, len(bound))
			for i, v := range bound {
				pts[i].X = timeX(r.Future.Timestamps[i])
				pts[i].Y = v
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeInternal,
					errors.CodeInternalError, "interval line")
			}
			line.LineStyle.Width = vg.Points(0.5)
			line.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
			p.Add(line)
		}
	}
	return p, nil
}

func residualChart(r *pipeline.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Model residuals"
	p.X.Label.Text = "Index"
	p.Y.Label.Text = "Residual"

	pts := make(plotter.XYs, len(r.Residuals))
	for i, v := range r.Residuals {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInternal, errors.CodeInternalError, "residual line")
	}
	p.Add(line)
	return p, nil
}

func seriesXY(s *timeseries.Series) plotter.XYs {
	pts := make(plotter.XYs, s.Len())
	for i := range s.Values {
		pts[i].X = timeX(s.Timestamps[i])
		pts[i].Y = s.Values[i]
	}
	return pts
}

func forecastXY(f *forecast.Result) plotter.XYs {
	pts := make(plotter.XYs, len(f.Values))
	for i := range f.Values {
		pts[i].X = timeX(f.Timestamps[i])
		pts[i].Y = f.Values[i]
	}
	return pts
}

func timeX(t time.Time) float64 {
	return float64(t.Unix())
}
