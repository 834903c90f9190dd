package report

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrostat/resforecast/internal/forecast"
	"github.com/hydrostat/resforecast/internal/timeseries"
)

func TestSaveCharts(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	values := make([]float64, 60)
	for i := range values {
		values[i] = 200 + float64(i) + rng.NormFloat64()
	}
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	series := timeseries.NewRegular(base, 30*24*time.Hour, values)

	residuals := make([]float64, 59)
	for i := range residuals {
		residuals[i] = rng.NormFloat64()
	}

	r := sampleReport()
	r.Series = series
	r.Diffed = series.Diff()
	r.Residuals = residuals
	r.Holdout = &forecast.Result{
		Timestamps: series.Timestamps[48:],
		Values:     series.Values[48:],
	}
	r.Future = &forecast.Result{
		Timestamps: series.FutureTimestamps(12),
		Values:     values[:12],
	}

	dir := filepath.Join(t.TempDir(), "charts")
	require.NoError(t, SaveCharts(r, dir))

	for _, name := range []string{
		"series.png", "differenced.png", "acf_pacf.png", "forecast.png", "residuals.png",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}
