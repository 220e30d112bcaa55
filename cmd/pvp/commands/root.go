package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/pvpforecast/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pvp",
	Short: "PVP forecast - 가격 예측 생성/정산 서비스",
	Long: `PVP Forecast Unified CLI

SKU와 time_key 단위로 두 파이프라인(A/B) 가격 예측을 생성하고,
실제 가격이 들어오면 같은 예측 행에 정산합니다.

Usage:
  go run ./cmd/pvp [command]

Examples:
  go run ./cmd/pvp api
  go run ./cmd/pvp migrate
  go run ./cmd/pvp forecast run X1 20240101
  go run ./cmd/pvp scheduler start
  go run ./cmd/pvp test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig applies the global flags and loads configuration
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	if env != "" {
		_ = os.Setenv("ENV", env)
	}
	if verbose {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
