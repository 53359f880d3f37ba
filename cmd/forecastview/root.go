package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aouyang1/go-forecastview/config"
	"github.com/aouyang1/go-forecastview/logging"
	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags are set at build time.
var version = "dev"

var (
	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
	profiler  interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:               "forecastview",
	Short:             "Chart price history against model forecasts.",
	Long:              `forecastview merges a symbol's price history with its prediction band onto one timeline and renders it as an interactive chart.`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	flags.StringP("symbol", "s", "BTC/USDT", "Symbol to chart")
	flags.String("api-url", "http://localhost:8000", "Base url of the forecast api")
	flags.String("history-file", "", "Read history records from a json file instead of the api")
	flags.String("forecast-file", "", "Read forecast records from a json file instead of the api")
	flags.Int("horizon", 0, "Keep only this many forecast points past the end of history, 0 keeps all")
	flags.Bool("demo", false, "Chart generated demo data instead of calling the api")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn or error")
	flags.String("log-format", logging.FormatConsole, "Log format: json or console")
	flags.String("profile", "", "Write a cpu or mem profile to the current directory")

	bindings := map[string]string{
		"config":        "config",
		"env-file":      "env-file",
		"symbol":        "symbol",
		"api.base_url":  "api-url",
		"history-file":  "history-file",
		"forecast-file": "forecast-file",
		"demo":          "demo",
		"horizon":       "horizon",
		"log.level":     "log-level",
		"log.format":    "log-format",
		"profile":       "profile",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s, %v", flag, err))
		}
	}
}

// initConfig points viper at the config file and environment.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".forecastview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("FORECASTVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setup(cmd *cobra.Command, _ []string) error {
	if envFile := viper.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s, %w", envFile, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file, %w", err)
		}
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, logCloser, err = logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.With().Str("cmd", cmd.Name()).Logger()

	switch mode := viper.GetString("profile"); mode {
	case "":
	case "cpu":
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		return fmt.Errorf("unknown profile mode %q, expected cpu or mem", mode)
	}
	return nil
}

func teardown() error {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
