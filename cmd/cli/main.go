package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydrostat/resforecast/cmd/cli/commands"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	logger := logrus.New()

	rootCmd := &cobra.Command{
		Use:   "resforecast",
		Short: "Reservoir storage ARIMA forecasting",
		Long: `Fits a univariate ARIMA model to a reservoir-storage time series and
produces forecasts with accuracy diagnostics.`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logger.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.resforecast.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(commands.NewForecastCmd(logger))
	rootCmd.AddCommand(commands.NewAnalyzeCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".resforecast")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RESFORECAST")

	_ = viper.ReadInConfig()
}
