package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/hubview/hubview/internal/app"
	"github.com/hubview/hubview/pkg/config"
)

// Initializes environment variables from .env files and binds them
// using Viper, so any value can be overridden from the environment.
func init() {
	// .env files are optional for a TUI; the environment alone works.
	_ = godotenv.Overload(".env", ".env.local")

	viper.AutomaticEnv()
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("APP_DEBUG")
	_ = viper.BindEnv("LOG_FILE")
	_ = viper.BindEnv("GITHUB_TOKEN")
	_ = viper.BindEnv("GITHUB_TOKEN_FILE")
	_ = viper.BindEnv("GITHUB_API_URL")
	_ = viper.BindEnv("REQUEST_TIMEOUT")
	_ = viper.BindEnv("MAX_ATTEMPTS")
	_ = viper.BindEnv("BACKOFF_BASE")
	_ = viper.BindEnv("PACE_RPS")
	_ = viper.BindEnv("CACHE_FRESH_FOR")
	_ = viper.BindEnv("CACHE_MAX_ENTRIES")
	_ = viper.BindEnv("CACHE_MEMORY_LIMIT")
	_ = viper.BindEnv("CACHE_MEMORY_FILL_THRESHOLD")
	_ = viper.BindEnv("INIT_STORAGE_LEN_PER_SHARD")
	_ = viper.BindEnv("CACHE_DIR")
	_ = viper.BindEnv("DEBUG_SERVER_ENABLED")
	_ = viper.BindEnv("DEBUG_SERVER_ADDR")
	_ = viper.BindEnv("UI_PER_PAGE")
}

// setMaxProcs aligns GOMAXPROCS with the available CPU quota.
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// setUpLogger routes logs to a file: the terminal belongs to the TUI
// renderer, any stray write would corrupt it.
func setUpLogger(cfg *config.Config) func() {
	level := zerolog.InfoLevel
	if cfg.IsDebugOn() {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	path := cfg.App.LogFile
	if path == "" {
		path = os.TempDir() + "/hubview.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Logger = zerolog.Nop()
		return func() {}
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { _ = f.Close() }
}

// loadCfg loads the configuration struct from environment variables
// and fills derived defaults.
func loadCfg() *config.Config {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Err(err).Msg("[main] failed to unmarshal config from envs")
		panic(err)
	}
	cfg.Defaults()
	return cfg
}

func main() {
	cfg := loadCfg()
	closeLog := setUpLogger(cfg)
	defer closeLog()
	setMaxProcs()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Err(err).Msg("[main] startup failed")
		fmt.Fprintln(os.Stderr, "hubview:", err)
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		log.Err(err).Msg("[main] terminal program failed")
		os.Exit(1)
	}
}
