package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long: `Start an HTTP server the automation host calls: POST /dispatch for each new round record,
POST /split and POST /dispatch/pending for bulk runs, GET /records to inspect the table.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv, err := server.New(server.Config{
		Port:      servePort,
		Store:     store,
		Sender:    sender,
		Split:     splitOptions(cfg),
		Dispatch:  dispatchOptions(cfg),
		Scheduler: schedulerOptions(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
