package pipeline

import (
	"github.com/spf13/viper"

	"github.com/hydrostat/resforecast/internal/arima"
	"github.com/hydrostat/resforecast/pkg/errors"
)

// Config contains the full configuration for one pipeline run.
type Config struct {
	// Input settings
	InputPath   string `mapstructure:"input" json:"input"`
	TimeColumn  string `mapstructure:"time_column" json:"time_column"`
	ValueColumn string `mapstructure:"value_column" json:"value_column"`
	DateFormat  string `mapstructure:"date_format" json:"date_format"`

	// Split and horizon settings
	TrainRatio float64 `mapstructure:"train_ratio" json:"train_ratio"`
	Horizon    int     `mapstructure:"horizon" json:"horizon"`

	// Order search settings
	MaxP      int    `mapstructure:"max_p" json:"max_p"`
	MaxQ      int    `mapstructure:"max_q" json:"max_q"`
	MaxD      int    `mapstructure:"max_d" json:"max_d"`
	FixedD    int    `mapstructure:"fixed_d" json:"fixed_d"`
	Criterion string `mapstructure:"criterion" json:"criterion"`
	Workers   int    `mapstructure:"workers" json:"workers"`

	// Diagnostics settings
	LjungBoxLags []int `mapstructure:"ljung_box_lags" json:"ljung_box_lags"`

	// Output settings
	ForecastCSV string `mapstructure:"forecast_csv" json:"forecast_csv"`
	ChartDir    string `mapstructure:"chart_dir" json:"chart_dir"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		TrainRatio:   0.8,
		Horizon:      12,
		MaxP:         5,
		MaxQ:         5,
		MaxD:         2,
		FixedD:       -1,
		Criterion:    string(arima.CriterionAICc),
		LjungBoxLags: []int{10, 15, 20},
	}
}

// FromViper builds a Config from viper-bound settings, applying defaults
// for unset keys.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration,
			errors.CodeConfigLoad, "failed to unmarshal configuration")
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for out-of-range settings.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeMissingField,
			"input path is required")
	}
	if c.TrainRatio <= 0 || c.TrainRatio >= 1 {
		return errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeConfigInvalid,
			"train_ratio must be in (0, 1)")
	}
	if c.Horizon < 1 {
		return errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeConfigInvalid,
			"horizon must be at least 1")
	}
	if c.MaxP < 0 || c.MaxQ < 0 || c.MaxD < 0 {
		return errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeConfigInvalid,
			"search bounds must be non-negative")
	}
	switch arima.Criterion(c.Criterion) {
	case arima.CriterionAIC, arima.CriterionAICc, arima.CriterionBIC, "":
	default:
		return errors.NewAppError(errors.ErrorTypeConfiguration, errors.CodeConfigInvalid,
			"criterion must be one of aic, aicc, bic")
	}
	return nil
}

// SelectConfig derives the order-search configuration.
func (c *Config) SelectConfig() *arima.SelectConfig {
	return &arima.SelectConfig{
		MaxP:      c.MaxP,
		MaxQ:      c.MaxQ,
		MaxD:      c.MaxD,
		FixedD:    c.FixedD,
		Criterion: arima.Criterion(c.Criterion),
		Workers:   c.Workers,
	}
}
