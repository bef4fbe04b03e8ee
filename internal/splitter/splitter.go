// Package splitter explodes composite master interview records into one record per round.
package splitter

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// Options configures a Splitter.
type Options struct {
	// BatchSize caps records per store call; 0 uses records.MaxBatchSize.
	BatchSize int
	// DeleteUnprocessable also deletes masters whose rounds field yields no tokens.
	DeleteUnprocessable bool
	// Rules overrides DefaultLinkRules.
	Rules  []LinkRule
	Logger *log.Logger
}

// Summary reports what one run did.
type Summary struct {
	Selected   int         `json:"selected"`
	Skipped    int         `json:"skipped"`
	Created    int         `json:"created"`
	Duplicates int         `json:"duplicates"`
	Deleted    int         `json:"deleted"`
	CreatedIDs []uuid.UUID `json:"created_ids,omitempty"`
}

// Plan is the pure outcome of exploding a snapshot of masters.
type Plan struct {
	Creates    []types.RecordInput
	Deletes    []uuid.UUID
	Skipped    int
	Duplicates int
}

// Splitter reads unsplit masters, writes per-round records and deletes the masters.
// It is single-threaded and assumes no concurrent writers during a run.
type Splitter struct {
	store  records.Client
	opts   Options
	logger *log.Logger
}

// New creates a Splitter over store.
func New(store records.Client, opts Options) *Splitter {
	if opts.Rules == nil {
		opts.Rules = DefaultLinkRules
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Splitter{store: store, opts: opts, logger: logger}
}

type roundKey struct {
	email string
	round string
}

// Run processes every master present when the run starts. Records added afterwards
// wait for the next run. All creations finish before the first deletion, so a failure
// leaves masters in place rather than losing data.
func (s *Splitter) Run(ctx context.Context) (*Summary, error) {
	masters, existing, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Selected: len(masters)}
	if len(masters) == 0 {
		s.logger.Printf("No records to process.")
		return summary, nil
	}

	plan := s.Plan(masters, existing)
	summary.Skipped = plan.Skipped
	summary.Duplicates = plan.Duplicates

	ids, err := records.CreateInBatches(ctx, s.store, plan.Creates, s.opts.BatchSize)
	summary.Created = len(ids)
	summary.CreatedIDs = ids
	if err != nil {
		return summary, fmt.Errorf("failed to create round records: %w", err)
	}

	deleted, err := records.DeleteInBatches(ctx, s.store, plan.Deletes, s.opts.BatchSize)
	summary.Deleted = deleted
	if err != nil {
		return summary, fmt.Errorf("failed to delete master records: %w", err)
	}

	s.logger.Printf("Processing complete. masters=%d created=%d duplicates=%d skipped=%d deleted=%d",
		summary.Selected, summary.Created, summary.Duplicates, summary.Skipped, summary.Deleted)
	return summary, nil
}

// Preview returns the plan a Run would execute now, without writing anything.
func (s *Splitter) Preview(ctx context.Context) (Plan, error) {
	masters, existing, err := s.snapshot(ctx)
	if err != nil {
		return Plan{}, err
	}
	return s.Plan(masters, existing), nil
}

func (s *Splitter) snapshot(ctx context.Context) (masters, existing []types.Record, err error) {
	unsplit, err := s.store.Query(ctx, records.Query{Status: types.SplitStatusUnsplit})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query master records: %w", err)
	}
	masters = make([]types.Record, 0, len(unsplit))
	for _, rec := range unsplit {
		if rec.IsMaster() {
			masters = append(masters, rec)
		}
	}
	if len(masters) == 0 {
		return masters, nil, nil
	}

	existing, err = s.store.Query(ctx, records.Query{Status: types.SplitStatusSplit})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query round records: %w", err)
	}
	return masters, existing, nil
}

// Plan explodes masters into round inputs. A round whose (email, round name) pair is
// already present in existing, or was produced by an earlier master of the same plan,
// is not created again. Repeats within one master's rounds field are kept.
func (s *Splitter) Plan(masters []types.Record, existing []types.Record) Plan {
	seen := make(map[roundKey]bool, len(existing))
	for _, rec := range existing {
		if rec.RoundName != "" {
			seen[roundKey{email: rec.Email, round: rec.RoundName}] = true
		}
	}

	var plan Plan
	for i := range masters {
		master := &masters[i]
		rounds := Explode(master, s.opts.Rules)
		if len(rounds) == 0 {
			plan.Skipped++
			s.logger.Printf("Skipping record %s (%s): no interview rounds", master.ID, master.Email)
			if s.opts.DeleteUnprocessable {
				plan.Deletes = append(plan.Deletes, master.ID)
			}
			continue
		}

		for _, in := range rounds {
			if seen[roundKey{email: in.Email, round: in.RoundName}] {
				plan.Duplicates++
				continue
			}
			plan.Creates = append(plan.Creates, in)
		}
		for _, in := range rounds {
			seen[roundKey{email: in.Email, round: in.RoundName}] = true
		}
		plan.Deletes = append(plan.Deletes, master.ID)
	}
	return plan
}

// Explode returns one round input per token of the master's rounds field, in order.
func Explode(master *types.Record, rules []LinkRule) []types.RecordInput {
	if rules == nil {
		rules = DefaultLinkRules
	}
	tokens := Tokenize(master.RoundsRaw)
	inputs := make([]types.RecordInput, 0, len(tokens))
	for _, round := range tokens {
		inputs = append(inputs, types.RecordInput{
			CandidateName: master.CandidateName,
			Email:         master.Email,
			Role:          master.Role,
			RoundsRaw:     master.RoundsRaw,
			Links:         master.Links,
			AddedOn:       master.AddedOn,
			RoundName:     round,
			ResolvedLink:  master.Links.For(ClassifyRound(round, rules)),
			Status:        types.SplitStatusSplit,
		})
	}
	return inputs
}
