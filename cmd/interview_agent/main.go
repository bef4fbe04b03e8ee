// Package main provides the entry point for the interview invitation CLI and HTTP trigger server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "Interview round splitter and invitation dispatcher",
	Long: `interview_agent explodes multi-round candidate records into one record per interview round,
emails each candidate an invitation through MailerSend and records the turnaround time.

Configuration is read from the environment, an optional JSON file given with --config, and flags.
Flags win over the file, which wins over the environment.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
