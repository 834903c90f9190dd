package timeseries

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydrostat/resforecast/pkg/errors"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	TimeColumn  string // Column name for timestamps (default: first recognized date column)
	ValueColumn string // Column name for values (default: last column)
	DateFormat  string // Preferred Go reference date format
	Delimiter   rune   // Field delimiter (default: ',')
	HasHeader   bool   // Whether CSV has a header row (default: true)
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateFormat: "2006-01-02",
		Delimiter:  ',',
		HasHeader:  true,
	}
}

// dateFormats are tried in order when parsing timestamps, starting with
// the configured format.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"Jan-2006",
}

// missingTokens are cell values treated as missing observations.
var missingTokens = map[string]bool{
	"": true, "na": true, "nan": true, "null": true, "n/a": true, "-": true,
}

// LoadCSV loads a time series from a CSV file. Rows may be unordered; the
// returned series is sorted by timestamp. Missing values come back as NaN
// and are left for the caller to fill.
func LoadCSV(path string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeData, errors.CodeNoData, path)
	}
	defer file.Close()

	series, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return nil, err
	}
	series.Name = path
	return series, nil
}

// LoadCSVFromReader loads a time series from an io.Reader.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true

	timeIdx, valueIdx := 0, 1
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeData, errors.CodeInvalidFormat,
				"failed to read CSV header")
		}
		timeIdx, valueIdx = resolveColumns(header, opts)
		if timeIdx < 0 {
			return nil, errors.NewDataError(errors.CodeBadTimestamp,
				"no timestamp column found in CSV header")
		}
		if valueIdx < 0 {
			return nil, errors.NewDataError(errors.CodeBadValue,
				"value column not found in CSV header").WithDetails(opts.ValueColumn)
		}
	}

	var timestamps []time.Time
	var values []float64

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeData, errors.CodeInvalidFormat,
				"failed to read CSV record")
		}
		if timeIdx >= len(record) || valueIdx >= len(record) {
			continue
		}

		ts, err := parseTimestamp(strings.TrimSpace(record[timeIdx]), opts.DateFormat)
		if err != nil {
			return nil, errors.WrapError(errors.ErrMissingTimestamp, errors.ErrorTypeData,
				errors.CodeBadTimestamp, record[timeIdx])
		}

		raw := strings.TrimSpace(record[valueIdx])
		var v float64
		if missingTokens[strings.ToLower(raw)] {
			v = math.NaN()
		} else {
			v, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeData, errors.CodeBadValue, raw)
			}
		}

		timestamps = append(timestamps, ts)
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, errors.WrapError(errors.ErrNoData, errors.ErrorTypeData, errors.CodeNoData,
			"CSV contained no data rows")
	}

	series := &Series{Timestamps: timestamps, Values: values}
	if err := series.Sort(); err != nil {
		return nil, err
	}
	return series, nil
}

// resolveColumns maps header names to timestamp/value column indices.
func resolveColumns(header []string, opts *CSVOptions) (timeIdx, valueIdx int) {
	timeIdx, valueIdx = -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"")))
		switch {
		case opts.TimeColumn != "" && name == strings.ToLower(opts.TimeColumn):
			timeIdx = i
		case opts.ValueColumn != "" && name == strings.ToLower(opts.ValueColumn):
			valueIdx = i
		case timeIdx < 0 && opts.TimeColumn == "" &&
			(name == "date" || name == "ds" || name == "time" || name == "timestamp" || name == "month"):
			timeIdx = i
		}
	}
	if valueIdx < 0 {
		// An explicitly named column that matched nothing is an error,
		// reported by the caller.
		if opts.ValueColumn != "" {
			return timeIdx, -1
		}
		// Fall back to the last column, skipping the timestamp column.
		valueIdx = len(header) - 1
		if valueIdx == timeIdx && valueIdx > 0 {
			valueIdx--
		}
	}
	return timeIdx, valueIdx
}

func parseTimestamp(raw, preferred string) (time.Time, error) {
	formats := dateFormats
	if preferred != "" {
		formats = append([]string{preferred}, dateFormats...)
	}
	var err error
	var ts time.Time
	for _, f := range formats {
		ts, err = time.Parse(f, raw)
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}

// SaveForecastCSV writes timestamps and forecast values side by side.
func SaveForecastCSV(path string, timestamps []time.Time, values []float64) error {
	if len(timestamps) != len(values) {
		return errors.NewValidationError(errors.CodeLengthMismatch,
			"timestamps and values must have the same length")
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeData, errors.CodeInvalidFormat, path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "forecast"}); err != nil {
		return err
	}
	for i := range values {
		record := []string{
			timestamps[i].Format("2006-01-02"),
			strconv.FormatFloat(values[i], 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
