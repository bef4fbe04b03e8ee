package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/config"
	"github.com/jonathan/interview-dispatch/internal/db"
	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/splitter"
)

// retryBackoff is the wait before the second send attempt of a pending dispatch.
const retryBackoff = 2 * time.Second

var (
	configPath  string
	databaseURL string
	apiKey      string
	verbose     bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVar(&databaseURL, "db-url", "", "Record store URL: postgres://... or sqlite:<path> (defaults to DATABASE_URL env var)")
	flags.StringVar(&apiKey, "api-key", "", "MailerSend API key (defaults to MAILERSEND_API_KEY env var)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// loadConfig resolves environment and config file, then applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = databaseURL
	}
	if cmd.Flags().Changed("api-key") {
		cfg.MailerSendAPIKey = apiKey
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the configured record store and makes sure its table exists.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to record store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newSender(cfg config.Config) (*mailer.Client, error) {
	if cfg.MailerSendAPIKey == "" {
		return nil, fmt.Errorf("MAILERSEND_API_KEY environment variable or --api-key flag is required")
	}
	return mailer.NewClient(mailer.Options{
		BaseURL:       cfg.MailerSendURL,
		APIKey:        cfg.MailerSendAPIKey,
		RatePerSecond: cfg.SendRatePerSecond,
	})
}

// newLogger returns the logger handed to the splitter and dispatcher. Quiet unless verbose.
func newLogger(cfg config.Config) *log.Logger {
	if cfg.Verbose {
		return log.Default()
	}
	return log.New(io.Discard, "", 0)
}

func splitOptions(cfg config.Config) splitter.Options {
	return splitter.Options{
		BatchSize:           cfg.BatchSize,
		DeleteUnprocessable: cfg.DeleteUnprocessable,
		Logger:              newLogger(cfg),
	}
}

func dispatchOptions(cfg config.Config) dispatch.Options {
	return dispatch.Options{
		From:   mailer.Address{Email: cfg.FromEmail, Name: cfg.FromName},
		Logger: newLogger(cfg),
	}
}

func schedulerOptions(cfg config.Config) dispatch.SchedulerOptions {
	return dispatch.SchedulerOptions{
		Concurrency: cfg.Concurrency,
		Retry:       dispatch.RetryPolicy{MaxAttempts: cfg.MaxAttempts, Backoff: retryBackoff},
		Logger:      newLogger(cfg),
	}
}
