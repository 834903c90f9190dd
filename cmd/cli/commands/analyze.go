package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hydrostat/resforecast/internal/stats"
	"github.com/hydrostat/resforecast/internal/timeseries"
)

// AnalyzeOptions holds the analyze command flags.
type AnalyzeOptions struct {
	InputFile   string
	TimeColumn  string
	ValueColumn string
	DateFormat  string
	MaxLag      int
}

// NewAnalyzeCmd creates the analyze command: stationarity tests and
// correlogram tables without fitting a model.
func NewAnalyzeCmd(logger *logrus.Logger) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run stationarity and autocorrelation diagnostics on a series",
		Long: `Loads a storage CSV and prints ADF and KPSS test results for the
original and first-differenced series, followed by ACF and PACF tables.
Useful for eyeballing a differencing degree before a full forecast run.`,
		Example: `  resforecast analyze --input storage.csv
  resforecast analyze --input storage.csv --max-lag 36`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (required)")
	cmd.Flags().StringVar(&opts.TimeColumn, "time-column", "", "Timestamp column name")
	cmd.Flags().StringVar(&opts.ValueColumn, "value-column", "", "Target column name")
	cmd.Flags().StringVar(&opts.DateFormat, "date-format", "", "Timestamp format (Go reference layout)")
	cmd.Flags().IntVar(&opts.MaxLag, "max-lag", 24, "Maximum correlogram lag")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, logger *logrus.Logger) error {
	csvOpts := timeseries.DefaultCSVOptions()
	csvOpts.TimeColumn = opts.TimeColumn
	csvOpts.ValueColumn = opts.ValueColumn
	if opts.DateFormat != "" {
		csvOpts.DateFormat = opts.DateFormat
	}

	series, err := timeseries.LoadCSV(opts.InputFile, csvOpts)
	if err != nil {
		return err
	}
	filled := series.ForwardFill()
	logger.WithFields(logrus.Fields{
		"observations": filled.Len(),
		"missing":      series.CountMissing(),
	}).Info("Series loaded")

	fmt.Printf("Series: %s (%d observations, %s to %s)\n\n",
		filled.Name, filled.Len(),
		filled.Timestamps[0].Format("2006-01-02"),
		filled.Timestamps[len(filled.Timestamps)-1].Format("2006-01-02"))

	printStationarity("Original series", filled.Values)
	printStationarity("First difference", filled.Diff().Values)

	maxLag := opts.MaxLag
	if maxLag >= filled.Len() {
		maxLag = filled.Len() - 1
	}
	acf, err := stats.ACF(filled.Values, maxLag)
	if err != nil {
		return err
	}
	pacf, err := stats.PACF(filled.Values, maxLag)
	if err != nil {
		return err
	}
	bound := stats.ConfidenceBound(filled.Len())

	fmt.Printf("Correlogram (95%% bound: +/-%.4f)\n", bound)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "lag\tacf\tpacf\t")
	for lag := 1; lag <= maxLag; lag++ {
		marker := ""
		if abs(acf[lag]) > bound || abs(pacf[lag]) > bound {
			marker = "*"
		}
		fmt.Fprintf(w, "%d\t%+.4f\t%+.4f\t%s\n", lag, acf[lag], pacf[lag], marker)
	}
	return w.Flush()
}

func printStationarity(label string, values []float64) {
	fmt.Printf("%s\n", label)

	adf, err := stats.ADF(values, -1)
	if err != nil {
		fmt.Printf("  ADF:  unavailable (%v)\n", err)
	} else {
		fmt.Printf("  ADF:  stat=%.4f  p=%.4f  lags=%d  stationary=%t\n",
			adf.Statistic, adf.PValue, adf.Lags, adf.IsStationary)
	}

	kpss, err := stats.KPSS(values, -1)
	if err != nil {
		fmt.Printf("  KPSS: unavailable (%v)\n", err)
	} else {
		fmt.Printf("  KPSS: stat=%.4f  p=%.4f  lags=%d  stationary=%t\n",
			kpss.Statistic, kpss.PValue, kpss.Lags, kpss.IsStationary)
	}
	fmt.Println()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
