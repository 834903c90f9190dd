package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrostat/resforecast/pkg/errors"
)

func TestEvaluate(t *testing.T) {
	t.Run("perfect forecast", func(t *testing.T) {
		actual := []float64{10, 12, 11, 13}

		m, err := Evaluate(actual, actual)
		require.NoError(t, err)
		assert.Zero(t, m.RMSE)
		assert.Zero(t, m.MAE)
		assert.Equal(t, 1.0, m.R2)
		assert.Equal(t, 4, m.N)
		assert.False(t, m.Degenerate)
	})

	t.Run("known errors", func(t *testing.T) {
		actual := []float64{1, 2, 3, 4}
		predicted := []float64{2, 2, 2, 2}

		m, err := Evaluate(actual, predicted)
		require.NoError(t, err)
		// Errors are -1, 0, 1, 2.
		assert.InDelta(t, math.Sqrt(1.5), m.RMSE, 1e-9)
		assert.InDelta(t, 1.0, m.MAE, 1e-9)
		assert.InDelta(t, 1-6.0/5.0, m.R2, 1e-9)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Evaluate([]float64{1, 2}, []float64{1})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrLengthMismatch)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Evaluate(nil, nil)
		require.Error(t, err)
	})

	t.Run("constant actuals are degenerate", func(t *testing.T) {
		m, err := Evaluate([]float64{5, 5, 5}, []float64{4, 5, 6})
		require.NoError(t, err)
		assert.True(t, m.Degenerate)
		assert.True(t, math.IsNaN(m.R2))
		assert.Greater(t, m.RMSE, 0.0)
	})
}
