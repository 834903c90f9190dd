package arima

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// ar1Series generates an AR(1) process y_t = c + phi*(y_{t-1}-c) + e_t.
func ar1Series(n int, phi, c float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	out[0] = c
	for i := 1; i < n; i++ {
		out[i] = c + phi*(out[i-1]-c) + rng.NormFloat64()
	}
	return out
}

func TestOrder(t *testing.T) {
	assert.Equal(t, "ARIMA(2,1,1)", Order{2, 1, 1}.String())

	require.NoError(t, Order{0, 0, 0}.Validate())
	err := Order{-1, 0, 0}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidOrder)
}

func TestFit(t *testing.T) {
	t.Run("white noise model", func(t *testing.T) {
		values := ar1Series(200, 0, 50, 1)
		m := New(Order{0, 0, 0})
		require.NoError(t, m.Fit(values))

		assert.True(t, m.Fitted())
		assert.InDelta(t, 50, m.Intercept, 0.5)
		assert.InDelta(t, 1.0, m.Variance, 0.3)
		assert.Len(t, m.Residuals(), 200)
		assert.False(t, math.IsInf(m.AIC, 0))
	})

	t.Run("ar coefficient recovered", func(t *testing.T) {
		values := ar1Series(500, 0.7, 100, 7)
		m := New(Order{1, 0, 0})
		require.NoError(t, m.Fit(values))

		require.Len(t, m.ARCoeffs, 1)
		assert.InDelta(t, 0.7, m.ARCoeffs[0], 0.2)
	})

	t.Run("coefficients stay inside the unit interval", func(t *testing.T) {
		// A trending series pushes the AR estimate toward 1; the clamp
		// must hold it below.
		values := make([]float64, 100)
		for i := range values {
			values[i] = float64(i * i)
		}
		m := New(Order{2, 0, 1})
		require.NoError(t, m.Fit(values))
		for _, c := range m.ARCoeffs {
			assert.LessOrEqual(t, math.Abs(c), 0.99)
		}
		for _, c := range m.MACoeffs {
			assert.LessOrEqual(t, math.Abs(c), 0.99)
		}
	})

	t.Run("series too short", func(t *testing.T) {
		m := New(Order{2, 1, 2})
		err := m.Fit([]float64{1, 2, 3, 4, 5})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrSeriesTooShort)
		assert.False(t, m.Fitted())
	})

	t.Run("invalid order", func(t *testing.T) {
		m := &Model{Order: Order{0, -1, 0}}
		err := m.Fit(make([]float64, 50))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidOrder)
	})

	t.Run("differencing shortens residuals", func(t *testing.T) {
		values := ar1Series(100, 0.5, 0, 3)
		m := New(Order{1, 1, 0})
		require.NoError(t, m.Fit(values))
		assert.Len(t, m.Residuals(), 99)
		assert.Len(t, m.FittedValues(), 99)
	})
}

func TestCriteria(t *testing.T) {
	values := ar1Series(120, 0.5, 10, 5)
	m := New(Order{1, 0, 1})
	require.NoError(t, m.Fit(values))

	assert.Greater(t, m.AICc, m.AIC)
	assert.False(t, math.IsNaN(m.BIC))
	assert.False(t, math.IsInf(m.LogLik, 1))
}

func TestPredict(t *testing.T) {
	t.Run("length matches horizon", func(t *testing.T) {
		m := New(Order{1, 0, 1})
		require.NoError(t, m.Fit(ar1Series(150, 0.6, 20, 2)))

		for _, steps := range []int{1, 5, 24} {
			forecast, err := m.Predict(steps)
			require.NoError(t, err)
			assert.Len(t, forecast, steps)
		}
	})

	t.Run("not fitted", func(t *testing.T) {
		_, err := New(Order{1, 0, 0}).Predict(5)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrModelNotFitted)
	})

	t.Run("invalid horizon", func(t *testing.T) {
		m := New(Order{0, 0, 0})
		require.NoError(t, m.Fit(ar1Series(50, 0, 0, 1)))
		_, err := m.Predict(0)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidHorizon)
	})

	t.Run("integrated forecast continues a linear trend", func(t *testing.T) {
		values := make([]float64, 60)
		for i := range values {
			values[i] = float64(i)
		}
		m := New(Order{0, 1, 0})
		require.NoError(t, m.Fit(values))

		forecast, err := m.Predict(3)
		require.NoError(t, err)
		assert.InDelta(t, 60, forecast[0], 1e-9)
		assert.InDelta(t, 61, forecast[1], 1e-9)
		assert.InDelta(t, 62, forecast[2], 1e-9)
	})

	t.Run("trend plus noise keeps trending", func(t *testing.T) {
		// Monthly-style series: linear growth of 5 per step with unit
		// noise. An ARIMA(1,1,1) forecast must continue the climb and
		// stay near the extrapolated trend.
		rng := rand.New(rand.NewSource(42))
		values := make([]float64, 100)
		for i := range values {
			values[i] = 1000 + 5*float64(i) + rng.NormFloat64()
		}

		m := New(Order{1, 1, 1})
		require.NoError(t, m.Fit(values))

		forecast, err := m.Predict(12)
		require.NoError(t, err)
		require.Len(t, forecast, 12)

		for i := 1; i < len(forecast); i++ {
			assert.Greater(t, forecast[i], forecast[i-1], "step %d", i)
		}
		assert.InDelta(t, 1000+5*111, forecast[11], 6)
	})

	t.Run("second-differenced forecast integrates back exactly", func(t *testing.T) {
		// y = t^2 has a constant second difference of 2, so an
		// ARIMA(0,2,0) forecast must continue the parabola exactly:
		// each integration level is seeded with the tail of that
		// level's differenced series, not the original.
		values := make([]float64, 40)
		for i := range values {
			values[i] = float64(i * i)
		}
		m := New(Order{0, 2, 0})
		require.NoError(t, m.Fit(values))

		forecast, err := m.Predict(3)
		require.NoError(t, err)
		assert.InDelta(t, 1600, forecast[0], 1e-6) // 40^2
		assert.InDelta(t, 1681, forecast[1], 1e-6) // 41^2
		assert.InDelta(t, 1764, forecast[2], 1e-6) // 42^2
	})

	t.Run("stationary forecast reverts toward the mean", func(t *testing.T) {
		values := ar1Series(400, 0.8, 100, 9)
		m := New(Order{1, 0, 0})
		require.NoError(t, m.Fit(values))

		forecast, err := m.Predict(50)
		require.NoError(t, err)
		assert.InDelta(t, m.Intercept, forecast[49], 1.0)
	})
}

func TestResidualAccessors(t *testing.T) {
	m := New(Order{1, 0, 0})
	assert.Nil(t, m.Residuals())
	assert.Nil(t, m.FittedValues())

	require.NoError(t, m.Fit(ar1Series(80, 0.4, 0, 4)))

	res := m.Residuals()
	res[0] = 1e9
	assert.NotEqual(t, 1e9, m.Residuals()[0])
}

func TestYuleWalker(t *testing.T) {
	// For an exact AR(1) ACF rho_k = phi^k the recursion recovers phi.
	phi := 0.6
	acf := []float64{1, phi, phi * phi, phi * phi * phi}

	coeffs := yuleWalker(acf, 1)
	require.Len(t, coeffs, 1)
	assert.InDelta(t, phi, coeffs[0], 1e-9)

	coeffs = yuleWalker(acf, 2)
	require.Len(t, coeffs, 2)
	assert.InDelta(t, phi, coeffs[0], 1e-9)
	assert.InDelta(t, 0, coeffs[1], 1e-9)

	assert.Nil(t, yuleWalker(acf, 0))
	assert.Nil(t, yuleWalker(acf, 5))
}
