package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/observability"
	"github.com/jonathan/interview-dispatch/internal/schemas"
	"github.com/jonathan/interview-dispatch/internal/types"
	embedded "github.com/jonathan/interview-dispatch/schemas"
)

var (
	dispatchTriggerPath string
	dispatchRecordID    string
	dispatchName        string
	dispatchEmail       string
	dispatchRole        string
	dispatchRound       string
	dispatchLink        string
	dispatchAddedOn     string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Send the invitation for a single round record",
	Long: `Sends one interview invitation and records the sent time and turnaround time on the record.

The trigger is read from a JSON file with --trigger (use - for stdin), or built from flags.`,
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchTriggerPath, "trigger", "", "Path to trigger JSON file, or - for stdin")
	dispatchCmd.Flags().StringVar(&dispatchRecordID, "record-id", "", "Round record ID")
	dispatchCmd.Flags().StringVarP(&dispatchName, "name", "n", "", "Candidate name")
	dispatchCmd.Flags().StringVar(&dispatchEmail, "email", "", "Candidate email")
	dispatchCmd.Flags().StringVar(&dispatchRole, "role", "", "Role applied for")
	dispatchCmd.Flags().StringVar(&dispatchRound, "round", "", "Interview round name")
	dispatchCmd.Flags().StringVar(&dispatchLink, "link", "", "Scheduling link (optional)")
	dispatchCmd.Flags().StringVar(&dispatchAddedOn, "added-on", "", "When the candidate was added, RFC3339")
	dispatchCmd.MarkFlagsMutuallyExclusive("trigger", "record-id")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	var (
		trigger *types.Trigger
		err     error
	)
	if dispatchTriggerPath != "" {
		trigger, err = readTrigger(dispatchTriggerPath)
	} else {
		trigger, err = triggerFromFlags()
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := dispatch.New(sender, store, dispatchOptions(cfg)).Dispatch(ctx, *trigger)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintDispatchResult(result)
	return nil
}

// readTrigger loads a trigger document and checks it against the trigger schema.
func readTrigger(path string) (*types.Trigger, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trigger: %w", err)
	}

	if err := schemas.ValidateDocument(embedded.Trigger, data); err != nil {
		return nil, err
	}
	var t types.Trigger
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse trigger JSON: %w", err)
	}
	return &t, nil
}

func triggerFromFlags() (*types.Trigger, error) {
	if dispatchRecordID == "" {
		return nil, fmt.Errorf("either --trigger or --record-id must be provided")
	}
	id, err := uuid.Parse(dispatchRecordID)
	if err != nil {
		return nil, fmt.Errorf("invalid --record-id: %w", err)
	}

	addedOn := time.Now()
	if dispatchAddedOn != "" {
		if addedOn, err = time.Parse(time.RFC3339, dispatchAddedOn); err != nil {
			return nil, fmt.Errorf("invalid --added-on: %w", err)
		}
	}

	t := &types.Trigger{
		RecordID:      id,
		CandidateName: dispatchName,
		Email:         dispatchEmail,
		Role:          dispatchRole,
		RoundName:     dispatchRound,
		ResolvedLink:  dispatchLink,
		AddedOn:       addedOn,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trigger: %w", err)
	}
	return t, nil
}
