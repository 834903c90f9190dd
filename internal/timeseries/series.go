// Package timeseries provides the time series container and the data
// preparation operations used by the forecasting pipeline.
package timeseries

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// Series represents a univariate time series with timestamps and values.
// Timestamps are strictly increasing once Sort has been applied; missing
// values are carried as NaN until ForwardFill.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a series from explicit timestamps and values.
func New(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.NewValidationError(errors.CodeLengthMismatch,
			"timestamps and values must have the same length")
	}
	return &Series{Timestamps: timestamps, Values: values}, nil
}

// NewRegular creates a series with evenly spaced timestamps starting at
// start. Used mostly for synthetic data in tests and examples.
func NewRegular(start time.Time, step time.Duration, values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range values {
		timestamps[i] = start.Add(time.Duration(i) * step)
	}
	return &Series{Timestamps: timestamps, Values: values}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean returns the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std returns the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	min := s.Values[0]
	for _, v := range s.Values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	max := s.Values[0]
	for _, v := range s.Values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Sort orders observations by timestamp. Input rows may arrive unordered;
// modeling requires temporal order. Duplicate timestamps are an error.
func (s *Series) Sort() error {
	idx := make([]int, len(s.Timestamps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Timestamps[idx[a]].Before(s.Timestamps[idx[b]])
	})

	timestamps := make([]time.Time, len(idx))
	values := make([]float64, len(idx))
	for i, j := range idx {
		timestamps[i] = s.Timestamps[j]
		values[i] = s.Values[j]
	}

	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Equal(timestamps[i-1]) {
			return errors.WrapError(errors.ErrDuplicateTimestamp, errors.ErrorTypeData,
				errors.CodeBadTimestamp, timestamps[i].Format(time.RFC3339))
		}
	}

	s.Timestamps = timestamps
	s.Values = values
	return nil
}

// ForwardFill replaces each NaN value with the most recent preceding
// observation. Leading NaN values have no predecessor and are dropped.
func (s *Series) ForwardFill() *Series {
	start := 0
	for start < len(s.Values) && math.IsNaN(s.Values[start]) {
		start++
	}

	timestamps := make([]time.Time, 0, len(s.Values)-start)
	values := make([]float64, 0, len(s.Values)-start)

	last := math.NaN()
	for i := start; i < len(s.Values); i++ {
		v := s.Values[i]
		if math.IsNaN(v) {
			v = last
		}
		last = v
		timestamps = append(timestamps, s.Timestamps[i])
		values = append(values, v)
	}

	return &Series{Timestamps: timestamps, Values: values, Name: s.Name}
}

// CountMissing returns the number of NaN values in the series.
func (s *Series) CountMissing() int {
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Diff returns the first difference of the series.
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN returns the series differenced n times. Each pass loses one
// observation from the front.
func (s *Series) DiffN(n int) *Series {
	current := s
	for i := 0; i < n; i++ {
		if current.Len() < 2 {
			return &Series{Name: s.Name + "_diff"}
		}
		values := make([]float64, current.Len()-1)
		timestamps := make([]time.Time, current.Len()-1)
		for j := 1; j < current.Len(); j++ {
			values[j-1] = current.Values[j] - current.Values[j-1]
			timestamps[j-1] = current.Timestamps[j]
		}
		current = &Series{Timestamps: timestamps, Values: values, Name: s.Name + "_diff"}
	}
	return current
}

// Split divides the series into train and test segments at the given
// ratio. Temporal order is preserved: the test segment strictly follows
// the train segment.
func (s *Series) Split(trainRatio float64) (train, test *Series, err error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, nil, errors.NewValidationError(errors.CodeOutOfRange,
			"train ratio must be in (0, 1)")
	}
	cut := int(float64(s.Len()) * trainRatio)
	if cut < 1 || cut >= s.Len() {
		return nil, nil, errors.NewDataError(errors.CodeInsufficientData,
			"series too short to split")
	}
	return s.Slice(0, cut), s.Slice(cut, s.Len()), nil
}

// Slice returns a copy of the series over [start, end).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > s.Len() {
		end = s.Len()
	}
	if start >= end {
		return &Series{Name: s.Name}
	}
	timestamps := make([]time.Time, end-start)
	values := make([]float64, end-start)
	copy(timestamps, s.Timestamps[start:end])
	copy(values, s.Values[start:end])
	return &Series{Timestamps: timestamps, Values: values, Name: s.Name}
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	return s.Slice(0, s.Len())
}

// TimeStep infers the sampling interval of the series. For irregular
// spacing the median of consecutive deltas is used.
func (s *Series) TimeStep() time.Duration {
	if len(s.Timestamps) < 2 {
		return 0
	}
	deltas := make([]time.Duration, len(s.Timestamps)-1)
	for i := 1; i < len(s.Timestamps); i++ {
		deltas[i-1] = s.Timestamps[i].Sub(s.Timestamps[i-1])
	}
	sort.Slice(deltas, func(a, b int) bool { return deltas[a] < deltas[b] })

	n := len(deltas)
	if n%2 == 1 {
		return deltas[n/2]
	}
	return (deltas[n/2-1] + deltas[n/2]) / 2
}

// FutureTimestamps generates n timestamps continuing past the end of the
// series at the inferred time step.
func (s *Series) FutureTimestamps(n int) []time.Time {
	if len(s.Timestamps) == 0 || n <= 0 {
		return nil
	}
	step := s.TimeStep()
	last := s.Timestamps[len(s.Timestamps)-1]
	future := make([]time.Time, n)
	for i := 0; i < n; i++ {
		last = last.Add(step)
		future[i] = last
	}
	return future
}
