// Package arima implements ARIMA model fitting, forecasting, and automatic
// order selection for univariate series.
package arima

import (
	"fmt"
	"math"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// Order is the (p, d, q) specification of an ARIMA model: autoregressive
// lag count, differencing degree, moving-average lag count. Selected once
// and immutable for the remainder of a run.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// String renders the order in the conventional ARIMA(p,d,q) form.
func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Validate checks the order against supported bounds.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return errors.WrapError(errors.ErrInvalidOrder, errors.ErrorTypeValidation,
			errors.CodeInvalidOrder, o.String())
	}
	return nil
}

// Model is a fitted ARIMA model bound to the series it was trained on.
type Model struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	Intercept float64
	Variance  float64
	LogLik    float64
	AIC       float64
	AICc      float64
	BIC       float64

	fitted     bool
	original   []float64
	diffed     []float64
	diffTails  []float64
	residuals  []float64
	fittedVals []float64
}

// New creates an unfitted model with the given order.
func New(order Order) *Model {
	return &Model{
		Order:    order,
		ARCoeffs: make([]float64, order.P),
		MACoeffs: make([]float64, order.Q),
	}
}

// Fit estimates the model on the given values by conditional sum of
// squares: Yule-Walker initialization for the AR terms followed by
// iterative gradient refinement. A fit that does not converge is reported
// as an error, never silently defaulted.
func (m *Model) Fit(values []float64) error {
	if err := m.Order.Validate(); err != nil {
		return err
	}
	p, d, q := m.Order.P, m.Order.D, m.Order.Q

	if len(values) <= p+d+q+1 {
		return errors.WrapError(errors.ErrSeriesTooShort, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("%d observations for %s", len(values), m.Order))
	}

	m.original = append([]float64(nil), values...)

	// The last value of each differencing level seeds the matching
	// integration step when forecasts are mapped back.
	diffed := m.original
	m.diffTails = make([]float64, 0, d)
	for i := 0; i < d; i++ {
		m.diffTails = append(m.diffTails, diffed[len(diffed)-1])
		diffed = difference(diffed)
	}
	if len(diffed) <= maxInt(p, q)+1 {
		return errors.WrapError(errors.ErrSeriesTooShort, errors.ErrorTypeModel,
			errors.CodeInsufficientData, "series exhausted by differencing")
	}
	m.diffed = diffed

	if err := m.estimate(); err != nil {
		return err
	}

	m.computeCriteria()
	m.fitted = true
	return nil
}

// Fitted reports whether the model has been fitted.
func (m *Model) Fitted() bool {
	return m.fitted
}

// estimate runs CSS estimation on the differenced series.
func (m *Model) estimate() error {
	y := m.diffed
	n := len(y)
	p, q := m.Order.P, m.Order.Q

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	m.Intercept = mean

	if p == 0 && q == 0 {
		m.residuals = make([]float64, n)
		m.fittedVals = make([]float64, n)
		sse := 0.0
		for i, v := range y {
			m.fittedVals[i] = mean
			m.residuals[i] = v - mean
			sse += m.residuals[i] * m.residuals[i]
		}
		if n > 1 {
			m.Variance = sse / float64(n-1)
		}
		return nil
	}

	if p > 0 {
		acf := sampleACF(y, p)
		if ar := yuleWalker(acf, p); ar != nil {
			copy(m.ARCoeffs, ar)
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}

	return m.refine(y)
}

// refine iteratively minimizes the conditional sum of squares with a
// damped gradient step, clamping coefficients inside the unit interval to
// keep the model stationary and invertible.
func (m *Model) refine(y []float64) error {
	n := len(y)
	p, q := m.Order.P, m.Order.Q

	const (
		maxIter      = 200
		tolerance    = 1e-6
		learningRate = 0.01
	)

	start := maxInt(p, q)
	residuals := make([]float64, n)

	sseAt := func() float64 {
		sse := 0.0
		for t := start; t < n; t++ {
			pred := m.predictAt(y, residuals, t)
			residuals[t] = y[t] - pred
			sse += residuals[t] * residuals[t]
		}
		return sse
	}

	prevSSE := sseAt()
	for iter := 0; iter < maxIter; iter++ {
		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		for t := start; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := 0; i < p; i++ {
			m.ARCoeffs[i] -= learningRate * arGrad[i] / float64(n)
			m.ARCoeffs[i] = clamp(m.ARCoeffs[i], -0.99, 0.99)
		}
		for i := 0; i < q; i++ {
			m.MACoeffs[i] -= learningRate * maGrad[i] / float64(n)
			m.MACoeffs[i] = clamp(m.MACoeffs[i], -0.99, 0.99)
		}

		sse := sseAt()
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return errors.WrapError(errors.ErrFitDiverged, errors.ErrorTypeModel,
				errors.CodeFitDiverged, m.Order.String())
		}
		if math.Abs(prevSSE-sse) < tolerance {
			break
		}
		prevSSE = sse
	}

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		if t < start {
			m.fittedVals[t] = m.Intercept
			m.residuals[t] = y[t] - m.Intercept
			continue
		}
		pred := m.predictAt(y, m.residuals, t)
		m.fittedVals[t] = pred
		m.residuals[t] = y[t] - pred
	}

	sse := 0.0
	count := 0
	for t := start; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if math.IsNaN(sse) {
		return errors.WrapError(errors.ErrFitDiverged, errors.ErrorTypeModel,
			errors.CodeFitDiverged, m.Order.String())
	}
	if count > p+q+1 {
		m.Variance = sse / float64(count-p-q-1)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}
	return nil
}

// predictAt computes the one-step prediction at index t from history and
// prior residuals.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	return pred
}

// computeCriteria fills in log-likelihood and the information criteria
// under Gaussian errors.
func (m *Model) computeCriteria() {
	n := len(m.residuals)
	k := m.Order.P + m.Order.Q + 1

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) -
			float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(-1)
	}

	kf, nf := float64(k), float64(n)
	m.AIC = -2*m.LogLik + 2*kf
	m.BIC = -2*m.LogLik + kf*math.Log(nf)
	if nf-kf-1 > 0 {
		m.AICc = m.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.AICc = math.Inf(1)
	}
}

// Predict returns point forecasts for exactly steps periods past the end
// of the training data, integrated back to the original scale.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.WrapError(errors.ErrModelNotFitted, errors.ErrorTypeModel,
			errors.CodeNotFitted, "predict called before fit")
	}
	if steps < 1 {
		return nil, errors.WrapError(errors.ErrInvalidHorizon, errors.ErrorTypeValidation,
			errors.CodeInvalidHorizon, fmt.Sprintf("steps=%d", steps))
	}

	p, q, d := m.Order.P, m.Order.Q, m.Order.D
	y := m.diffed
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extRes := make([]float64, n+steps)
	copy(extRes, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		// Future residuals have expectation zero.
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extRes[t-i-1]
		}
		extY[t] = pred
		extRes[t] = 0
	}

	forecasts := append([]float64(nil), extY[n:]...)
	if d > 0 {
		forecasts = m.integrate(forecasts)
	}
	return forecasts, nil
}

// integrate undoes differencing so forecasts land on the original scale.
// Levels unwind innermost-first: the d-th-difference forecasts are summed
// against the last (d-1)-th difference, then against the last (d-2)-th,
// down to the last original value.
func (m *Model) integrate(forecasts []float64) []float64 {
	result := append([]float64(nil), forecasts...)
	for level := m.Order.D - 1; level >= 0; level-- {
		last := m.diffTails[level]
		for j := range result {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}

// Residuals returns a copy of the in-sample residuals on the differenced
// scale. Length equals the training length minus the observations lost to
// differencing.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// FittedValues returns a copy of the in-sample one-step predictions.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.fittedVals...)
}

// difference computes the first difference of values.
func difference(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// sampleACF computes autocorrelations for lags 0..maxLag.
func sampleACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	c0 := 0.0
	for _, v := range values {
		d := v - mean
		c0 += d * d
	}
	acf := make([]float64, maxLag+1)
	if c0 == 0 {
		return acf
	}
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / c0
	}
	return acf
}

// yuleWalker solves the Yule-Walker equations for AR coefficients with the
// Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		if v == 0 {
			break
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
		if v <= 0 {
			break
		}
	}
	return phi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
