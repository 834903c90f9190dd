// Package pipeline orchestrates the forecasting run: load, stationarity
// check, order selection, fitting, forecasting, evaluation, and residual
// diagnostics, in that order, with no loops back.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hydrostat/resforecast/internal/arima"
	"github.com/hydrostat/resforecast/internal/forecast"
	"github.com/hydrostat/resforecast/internal/stats"
	"github.com/hydrostat/resforecast/internal/timeseries"
	"github.com/hydrostat/resforecast/pkg/errors"
)

// StationarityReport pairs unit-root test results for one series.
type StationarityReport struct {
	Label string            `json:"label"`
	ADF   *stats.ADFResult  `json:"adf"`
	KPSS  *stats.KPSSResult `json:"kpss,omitempty"`
}

// Report is the complete outcome of a pipeline run.
type Report struct {
	RunID     string        `json:"run_id"`
	Input     string        `json:"input"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Data summary
	Observations int           `json:"observations"`
	FilledValues int           `json:"filled_values"`
	RangeStart   time.Time     `json:"range_start"`
	RangeEnd     time.Time     `json:"range_end"`
	TimeStep     time.Duration `json:"time_step"`

	// Diagnostics and model selection
	Stationarity []StationarityReport    `json:"stationarity"`
	Order        arima.Order             `json:"order"`
	Criterion    arima.Criterion         `json:"criterion"`
	Score        float64                 `json:"score"`
	Evaluated    int                     `json:"models_evaluated"`
	Candidates   []arima.Candidate       `json:"-"`
	LjungBox     []*stats.LjungBoxResult `json:"ljung_box"`

	// Forecasts and accuracy
	Holdout         *forecast.Result  `json:"holdout_forecast"`
	HoldoutActual   []float64         `json:"holdout_actual"`
	Metrics         *forecast.Metrics `json:"metrics"`
	Future          *forecast.Result  `json:"future_forecast"`

	// Series snapshots for reporting and charts
	Series    *timeseries.Series `json:"-"`
	Diffed    *timeseries.Series `json:"-"`
	Train     *timeseries.Series `json:"-"`
	Test      *timeseries.Series `json:"-"`
	Residuals []float64          `json:"-"`
}

// Pipeline runs the forecasting stages against a configuration.
type Pipeline struct {
	cfg    *Config
	logger *logrus.Logger
}

// New creates a pipeline for the given configuration.
func New(cfg *Config, logger *logrus.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.NewAppError(errors.ErrorTypeConfiguration,
			errors.CodeMissingField, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Run executes the pipeline once. Each stage consumes the previous stage's
// complete output; a fatal error at any stage surfaces to the caller.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Input:     p.cfg.InputPath,
		StartedAt: time.Now(),
	}
	log := p.logger.WithField("run_id", report.RunID)
	log.WithField("input", p.cfg.InputPath).Info("Starting forecasting run")

	series, err := p.load(log, report)
	if err != nil {
		return nil, err
	}

	p.checkStationarity(log, report, series)

	selection, err := p.selectOrder(ctx, log, series)
	if err != nil {
		return nil, err
	}
	report.Order = selection.Order
	report.Criterion = selection.Criterion
	report.Score = selection.Score
	report.Evaluated = selection.Evaluated
	report.Candidates = selection.Candidates

	if err := p.fitAndForecast(log, report, series, selection.Order); err != nil {
		return nil, err
	}

	report.Duration = time.Since(report.StartedAt)
	log.WithFields(logrus.Fields{
		"order":    report.Order.String(),
		"rmse":     report.Metrics.RMSE,
		"duration": report.Duration,
	}).Info("Forecasting run complete")
	return report, nil
}

// load reads the input CSV, sorts it, and forward-fills missing values.
func (p *Pipeline) load(log *logrus.Entry, report *Report) (*timeseries.Series, error) {
	opts := timeseries.DefaultCSVOptions()
	opts.TimeColumn = p.cfg.TimeColumn
	opts.ValueColumn = p.cfg.ValueColumn
	if p.cfg.DateFormat != "" {
		opts.DateFormat = p.cfg.DateFormat
	}

	raw, err := timeseries.LoadCSV(p.cfg.InputPath, opts)
	if err != nil {
		return nil, err
	}

	report.FilledValues = raw.CountMissing()
	series := raw.ForwardFill()
	if series.Len() < 24 {
		return nil, errors.WrapError(errors.ErrSeriesTooShort, errors.ErrorTypeData,
			errors.CodeInsufficientData, "pipeline requires at least 24 observations")
	}

	report.Observations = series.Len()
	report.RangeStart = series.Timestamps[0]
	report.RangeEnd = series.Timestamps[series.Len()-1]
	report.TimeStep = series.TimeStep()
	report.Series = series
	report.Diffed = series.Diff()

	log.WithFields(logrus.Fields{
		"observations": report.Observations,
		"filled":       report.FilledValues,
		"time_step":    report.TimeStep,
	}).Info("Loaded series")
	return series, nil
}

// checkStationarity runs unit-root tests on the original and first-
// differenced series. The results are diagnostic only; nothing downstream
// consumes them.
func (p *Pipeline) checkStationarity(log *logrus.Entry, report *Report, series *timeseries.Series) {
	for _, item := range []struct {
		label  string
		values []float64
	}{
		{"original", series.Values},
		{"first difference", report.Diffed.Values},
	} {
		sr := StationarityReport{Label: item.label}
		if adf, err := stats.ADF(item.values, 0); err == nil {
			sr.ADF = adf
			log.WithFields(logrus.Fields{
				"series":     item.label,
				"statistic":  adf.Statistic,
				"p_value":    adf.PValue,
				"stationary": adf.IsStationary,
			}).Info("ADF test")
		} else {
			log.WithError(err).WithField("series", item.label).Warn("ADF test skipped")
		}
		if kpss, err := stats.KPSS(item.values, 0); err == nil {
			sr.KPSS = kpss
		}
		report.Stationarity = append(report.Stationarity, sr)
	}
}

// selectOrder runs the stepwise order search on the full series.
func (p *Pipeline) selectOrder(ctx context.Context, log *logrus.Entry, series *timeseries.Series) (*arima.Selection, error) {
	log.WithFields(logrus.Fields{
		"max_p": p.cfg.MaxP,
		"max_q": p.cfg.MaxQ,
	}).Info("Selecting model order")
	return arima.Select(ctx, series.Values, p.cfg.SelectConfig(), p.logger)
}

// fitAndForecast performs the two independent fits and both forecasts:
// a train-split fit scored against the held-out tail, and a full-series
// fit projected past the observed range.
func (p *Pipeline) fitAndForecast(log *logrus.Entry, report *Report, series *timeseries.Series, order arima.Order) error {
	train, test, err := series.Split(p.cfg.TrainRatio)
	if err != nil {
		return err
	}
	report.Train = train
	report.Test = test

	trainModel := arima.New(order)
	if err := trainModel.Fit(train.Values); err != nil {
		return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
			"train-split fit failed")
	}

	holdout, err := forecast.Run(trainModel, train, test.Len())
	if err != nil {
		return err
	}
	report.Holdout = holdout
	report.HoldoutActual = test.Values

	metrics, err := forecast.Evaluate(test.Values, holdout.Values)
	if err != nil {
		return err
	}
	report.Metrics = metrics
	if metrics.Degenerate {
		log.Warn("Held-out series is constant; R² is undefined")
	}
	log.WithFields(logrus.Fields{
		"rmse": metrics.RMSE,
		"mae":  metrics.MAE,
		"r2":   metrics.R2,
	}).Info("Held-out evaluation")

	fullModel := arima.New(order)
	if err := fullModel.Fit(series.Values); err != nil {
		return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
			"full-series fit failed")
	}

	future, err := forecast.Run(fullModel, series, p.cfg.Horizon)
	if err != nil {
		return err
	}
	report.Future = future
	report.Residuals = fullModel.Residuals()

	lb, err := stats.LjungBoxAtLags(report.Residuals, p.cfg.LjungBoxLags, order.P+order.Q)
	if err != nil {
		log.WithError(err).Warn("Residual diagnostics skipped")
	} else {
		report.LjungBox = lb
	}
	return nil
}
