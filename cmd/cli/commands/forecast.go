package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydrostat/resforecast/internal/pipeline"
	"github.com/hydrostat/resforecast/internal/report"
	"github.com/hydrostat/resforecast/internal/timeseries"
)

// ForecastOptions holds the forecast command flags.
type ForecastOptions struct {
	InputFile   string
	TimeColumn  string
	ValueColumn string
	DateFormat  string
	TrainRatio  float64
	Horizon     int
	MaxP        int
	MaxQ        int
	MaxD        int
	FixedD      int
	Criterion   string
	Workers     int
	ForecastCSV string
	ChartDir    string
	OutputFile  string
}

// NewForecastCmd creates the forecast command: the whole pipeline in one
// run, from CSV to report.
func NewForecastCmd(logger *logrus.Logger) *cobra.Command {
	opts := &ForecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run the full forecasting pipeline on a storage series",
		Long: `Loads a reservoir-storage CSV, checks stationarity, selects an ARIMA
order by stepwise search, fits on a train split and on the full series,
forecasts a held-out and a future horizon, and reports accuracy and
residual diagnostics.`,
		Example: `  # Forecast 12 steps ahead from monthly storage data
  resforecast forecast --input storage.csv --horizon 12

  # Fix the differencing degree and write charts
  resforecast forecast --input storage.csv --fixed-d 1 --charts out/charts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (required)")
	cmd.Flags().StringVar(&opts.TimeColumn, "time-column", "", "Timestamp column name")
	cmd.Flags().StringVar(&opts.ValueColumn, "value-column", "", "Target column name")
	cmd.Flags().StringVar(&opts.DateFormat, "date-format", "", "Timestamp format (Go reference layout)")
	cmd.Flags().Float64Var(&opts.TrainRatio, "train-ratio", 0.8, "Train split ratio")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 12, "Future forecast horizon")
	cmd.Flags().IntVar(&opts.MaxP, "max-p", 5, "Maximum AR order in the search")
	cmd.Flags().IntVar(&opts.MaxQ, "max-q", 5, "Maximum MA order in the search")
	cmd.Flags().IntVar(&opts.MaxD, "max-d", 2, "Maximum auto-detected differencing degree")
	cmd.Flags().IntVar(&opts.FixedD, "fixed-d", -1, "Fix the differencing degree (-1 to auto-detect)")
	cmd.Flags().StringVar(&opts.Criterion, "criterion", "aicc", "Selection criterion (aic, aicc, bic)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Candidate fit workers (0 for GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.ForecastCSV, "forecast-csv", "", "Write the future forecast to this CSV file")
	cmd.Flags().StringVar(&opts.ChartDir, "charts", "", "Write diagnostic charts into this directory")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "Report destination (- for stdout)")

	cmd.MarkFlagRequired("input")

	viper.BindPFlag("input", cmd.Flags().Lookup("input"))
	viper.BindPFlag("time_column", cmd.Flags().Lookup("time-column"))
	viper.BindPFlag("value_column", cmd.Flags().Lookup("value-column"))
	viper.BindPFlag("date_format", cmd.Flags().Lookup("date-format"))
	viper.BindPFlag("train_ratio", cmd.Flags().Lookup("train-ratio"))
	viper.BindPFlag("horizon", cmd.Flags().Lookup("horizon"))
	viper.BindPFlag("max_p", cmd.Flags().Lookup("max-p"))
	viper.BindPFlag("max_q", cmd.Flags().Lookup("max-q"))
	viper.BindPFlag("max_d", cmd.Flags().Lookup("max-d"))
	viper.BindPFlag("fixed_d", cmd.Flags().Lookup("fixed-d"))
	viper.BindPFlag("criterion", cmd.Flags().Lookup("criterion"))
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("forecast_csv", cmd.Flags().Lookup("forecast-csv"))
	viper.BindPFlag("chart_dir", cmd.Flags().Lookup("charts"))

	return cmd
}

func runForecast(cmd *cobra.Command, opts *ForecastOptions, logger *logrus.Logger) error {
	cfg, err := pipeline.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.OutputFile != "" && opts.OutputFile != "-" {
		f, err := os.Create(opts.OutputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteText(out, result); err != nil {
		return err
	}

	if cfg.ForecastCSV != "" {
		if err := timeseries.SaveForecastCSV(cfg.ForecastCSV,
			result.Future.Timestamps, result.Future.Values); err != nil {
			return err
		}
		logger.WithField("path", cfg.ForecastCSV).Info("Forecast CSV written")
	}

	if cfg.ChartDir != "" {
		if err := report.SaveCharts(result, cfg.ChartDir); err != nil {
			return err
		}
		logger.WithField("dir", cfg.ChartDir).Info("Charts written")
	}
	return nil
}
