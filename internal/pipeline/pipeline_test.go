package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// writeStorageCSV writes n monthly observations of a trending storage
// series with seeded noise and returns the file path.
func writeStorageCSV(t *testing.T, n int, seed int64) string {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	path := filepath.Join(t.TempDir(), "storage.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	fmt.Fprintln(f, "date,storage")
	for i := 0; i < n; i++ {
		ts := time.Date(2015, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC)
		value := 1000 + 5*float64(i) + rng.NormFloat64()
		fmt.Fprintf(f, "%s,%.4f\n", ts.Format("2006-01-02"), value)
	}
	return path
}

func testConfig(input string) *Config {
	cfg := DefaultConfig()
	cfg.InputPath = input
	cfg.MaxP = 2
	cfg.MaxQ = 2
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	_, err = New(&Config{}, nil)
	require.Error(t, err)

	p, err := New(testConfig("data.csv"), nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRun(t *testing.T) {
	path := writeStorageCSV(t, 100, 42)
	p, err := New(testConfig(path), quietLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	t.Run("data summary", func(t *testing.T) {
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, path, report.Input)
		assert.Equal(t, 100, report.Observations)
		assert.Zero(t, report.FilledValues)
		assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), report.RangeStart)
		// Monthly cadence: the inferred step lands between 28 and 31 days.
		assert.GreaterOrEqual(t, report.TimeStep, 28*24*time.Hour)
		assert.LessOrEqual(t, report.TimeStep, 31*24*time.Hour)
	})

	t.Run("stationarity diagnostics", func(t *testing.T) {
		require.Len(t, report.Stationarity, 2)
		assert.Equal(t, "original", report.Stationarity[0].Label)
		assert.Equal(t, "first difference", report.Stationarity[1].Label)
		require.NotNil(t, report.Stationarity[1].ADF)
		// The differenced trend-plus-noise series is stationary.
		assert.True(t, report.Stationarity[1].ADF.IsStationary)
	})

	t.Run("model selection", func(t *testing.T) {
		assert.Positive(t, report.Evaluated)
		assert.NotEmpty(t, report.Candidates)
		// A linear trend needs differencing.
		assert.GreaterOrEqual(t, report.Order.D, 1)
	})

	t.Run("holdout evaluation", func(t *testing.T) {
		require.NotNil(t, report.Holdout)
		require.NotNil(t, report.Metrics)
		assert.Equal(t, 20, report.Holdout.Horizon())
		assert.Len(t, report.HoldoutActual, 20)
		assert.Equal(t, 20, report.Metrics.N)
		// Noise has unit variance; a sensible model lands well inside
		// 20 units of RMSE on a series spanning 500.
		assert.Less(t, report.Metrics.RMSE, 20.0)
		assert.False(t, report.Metrics.Degenerate)
	})

	t.Run("future forecast", func(t *testing.T) {
		require.NotNil(t, report.Future)
		assert.Equal(t, 12, report.Future.Horizon())
		assert.True(t, report.Future.Timestamps[0].After(report.RangeEnd))
		// The upward trend continues into the forecast.
		assert.Greater(t, report.Future.Values[11], report.Future.Values[0])
	})

	t.Run("residual diagnostics", func(t *testing.T) {
		require.Len(t, report.LjungBox, 3)
		assert.Equal(t, 10, report.LjungBox[0].Lag)
		assert.Equal(t, 15, report.LjungBox[1].Lag)
		assert.Equal(t, 20, report.LjungBox[2].Lag)
		assert.NotEmpty(t, report.Residuals)
	})
}

func TestRunMissingValues(t *testing.T) {
	// Rewrite a handful of rows with empty values; forward fill must
	// account for them in the report.
	path := filepath.Join(t.TempDir(), "gaps.csv")
	f, err := os.Create(path)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	fmt.Fprintln(f, "date,storage")
	for i := 0; i < 60; i++ {
		ts := time.Date(2018, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC)
		if i == 10 || i == 30 {
			fmt.Fprintf(f, "%s,\n", ts.Format("2006-01-02"))
			continue
		}
		fmt.Fprintf(f, "%s,%.4f\n", ts.Format("2006-01-02"), 500+rng.NormFloat64())
	}
	require.NoError(t, f.Close())

	p, err := New(testConfig(path), quietLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilledValues)
	assert.Equal(t, 60, report.Observations)
}

func TestRunShortSeries(t *testing.T) {
	path := writeStorageCSV(t, 10, 1)
	p, err := New(testConfig(path), quietLogger())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSeriesTooShort)
}

func TestRunMissingFile(t *testing.T) {
	p, err := New(testConfig(filepath.Join(t.TempDir(), "absent.csv")), quietLogger())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeData))
}
