package arima

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitRootSeries generates a random walk with drift.
func unitRootSeries(n int, drift float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + drift + rng.NormFloat64()
	}
	return out
}

func TestNDiffs(t *testing.T) {
	t.Run("stationary series needs none", func(t *testing.T) {
		assert.Equal(t, 0, NDiffs(ar1Series(300, 0.3, 0, 1), 2))
	})

	t.Run("random walk needs one", func(t *testing.T) {
		assert.Equal(t, 1, NDiffs(unitRootSeries(300, 0, 21), 2))
	})

	t.Run("maxD zero disables differencing", func(t *testing.T) {
		assert.Equal(t, 0, NDiffs(unitRootSeries(300, 0, 21), 0))
	})

	t.Run("capped at maxD", func(t *testing.T) {
		// A doubly integrated series would want d=2 or more; the cap
		// holds regardless.
		walk := unitRootSeries(300, 0, 5)
		cumsum := make([]float64, len(walk))
		sum := 0.0
		for i, v := range walk {
			sum += v
			cumsum[i] = sum
		}
		assert.LessOrEqual(t, NDiffs(cumsum, 2), 2)
	})
}

func TestCriterionScore(t *testing.T) {
	m := &Model{AIC: 10, AICc: 11, BIC: 12}
	assert.Equal(t, 10.0, CriterionAIC.Score(m))
	assert.Equal(t, 11.0, CriterionAICc.Score(m))
	assert.Equal(t, 12.0, CriterionBIC.Score(m))
	assert.Equal(t, 11.0, Criterion("").Score(m))
}

func TestSelect(t *testing.T) {
	ctx := context.Background()

	t.Run("finds dependence in an AR series", func(t *testing.T) {
		values := ar1Series(300, 0.8, 50, 42)
		cfg := &SelectConfig{MaxP: 3, MaxQ: 3, FixedD: 0, Criterion: CriterionAICc}

		sel, err := Select(ctx, values, cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, sel.Model)
		assert.True(t, sel.Model.Fitted())
		assert.Equal(t, 0, sel.Order.D)
		// A strongly autocorrelated series must not select white noise,
		// and the chosen order stays within one lag of the true AR(1).
		assert.Positive(t, sel.Order.P+sel.Order.Q)
		assert.LessOrEqual(t, sel.Order.P, 2)
		assert.LessOrEqual(t, sel.Order.Q, 2)
		assert.Positive(t, sel.Evaluated)
	})

	t.Run("auto differencing", func(t *testing.T) {
		values := unitRootSeries(300, 0.5, 11)
		cfg := &SelectConfig{MaxP: 2, MaxQ: 2, MaxD: 2, FixedD: -1}

		sel, err := Select(ctx, values, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, sel.Order.D)
	})

	t.Run("worker count does not change the outcome", func(t *testing.T) {
		values := ar1Series(250, 0.6, 10, 7)

		var orders []Order
		var scores []float64
		for _, workers := range []int{1, 4, 16} {
			cfg := &SelectConfig{MaxP: 4, MaxQ: 4, FixedD: 0, Workers: workers}
			sel, err := Select(ctx, values, cfg, nil)
			require.NoError(t, err)
			orders = append(orders, sel.Order)
			scores = append(scores, sel.Score)
		}
		assert.Equal(t, orders[0], orders[1])
		assert.Equal(t, orders[0], orders[2])
		assert.Equal(t, scores[0], scores[1])
		assert.Equal(t, scores[0], scores[2])
	})

	t.Run("candidates ranked by score", func(t *testing.T) {
		sel, err := Select(ctx, ar1Series(200, 0.5, 0, 3),
			&SelectConfig{MaxP: 2, MaxQ: 2, FixedD: 0}, nil)
		require.NoError(t, err)
		require.NotEmpty(t, sel.Candidates)

		for i := 1; i < len(sel.Candidates); i++ {
			assert.LessOrEqual(t, sel.Candidates[i-1].Score, sel.Candidates[i].Score)
		}
		assert.Equal(t, sel.Order, sel.Candidates[0].Order)
		assert.Equal(t, sel.Score, sel.Candidates[0].Score)
	})

	t.Run("failed fits become failed candidates", func(t *testing.T) {
		// Five observations: ARIMA(2,0,2) needs more and must fail, but
		// the search still completes on the smaller candidates.
		values := []float64{3, 1, 4, 1, 5}
		cfg := &SelectConfig{MaxP: 2, MaxQ: 2, FixedD: 0}

		sel, err := Select(ctx, values, cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, sel.Model)

		failed := 0
		for _, cand := range sel.Candidates {
			if cand.Err != nil {
				failed++
				assert.True(t, math.IsInf(cand.Score, 1))
				assert.Nil(t, cand.Model)
			}
		}
		assert.Positive(t, failed)
	})

	t.Run("defaults applied for nil config", func(t *testing.T) {
		sel, err := Select(ctx, ar1Series(200, 0.4, 0, 8), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, CriterionAICc, sel.Criterion)
	})
}
