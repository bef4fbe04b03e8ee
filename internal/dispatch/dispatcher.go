// Package dispatch sends interview invitations for round records and records their turnaround time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/tat"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// Options configures a Dispatcher.
type Options struct {
	From   mailer.Address
	Team   string
	Now    func() time.Time
	Logger *log.Logger
}

// Dispatcher handles one trigger at a time. It holds no per-record state, so a single
// Dispatcher may be shared by concurrent callers working on distinct records.
type Dispatcher struct {
	sender mailer.Sender
	store  records.RoundStore
	from   mailer.Address
	team   string
	now    func() time.Time
	logger *log.Logger
}

// New creates a Dispatcher.
func New(sender mailer.Sender, store records.RoundStore, opts Options) *Dispatcher {
	from := opts.From
	if from.Email == "" {
		from = DefaultFrom
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		sender: sender,
		store:  store,
		from:   from,
		team:   opts.Team,
		now:    now,
		logger: logger,
	}
}

// Dispatch sends the invitation and, only once the email service accepted it, writes the
// sent time and TAT in one update. The trigger must name a pending round record with the
// same email and round; otherwise nothing is sent. Send and store errors are returned as
// they came; a failed dispatch leaves the record pending.
func (d *Dispatcher) Dispatch(ctx context.Context, t types.Trigger) (*types.DispatchResult, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trigger: %w", err)
	}
	if err := d.checkPending(ctx, t); err != nil {
		d.logger.Printf("Skipping record %s: %v", t.RecordID, err)
		return nil, err
	}

	msg, err := BuildInvitation(t, d.from, d.team)
	if err != nil {
		return nil, err
	}

	d.logger.Printf("Sending invite to %s for %s...", t.CandidateName, t.RoundName)
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Printf("Critical failure for record %s: %v", t.RecordID, err)
		return nil, err
	}

	sent := d.now()
	result := &types.DispatchResult{
		RecordID:     t.RecordID,
		MailSentTime: sent,
		TATHours:     tat.Calculate(t.AddedOn, sent),
	}
	if err := d.store.UpdateRecord(ctx, t.RecordID, result.Update()); err != nil {
		d.logger.Printf("Critical failure for record %s: email accepted but not recorded: %v", t.RecordID, err)
		return nil, err
	}

	d.logger.Printf("TAT calculated: %.2f hours recorded.", result.TATHours)
	return result, nil
}

// checkPending loads the record the trigger names and rejects it unless it is an unsent
// round record for the same recipient and round.
func (d *Dispatcher) checkPending(ctx context.Context, t types.Trigger) error {
	rec, err := records.Lookup(ctx, d.store, t.RecordID)
	if err != nil {
		return err
	}
	if rec.MailSentTime != nil {
		return &records.AlreadySentError{ID: rec.ID, SentAt: *rec.MailSentTime}
	}
	switch {
	case rec.IsMaster():
		return &records.ValidationError{Index: -1, Cause: errors.New("record has not been split into rounds")}
	case !strings.EqualFold(strings.TrimSpace(rec.Email), strings.TrimSpace(t.Email)):
		return &records.ValidationError{Index: -1, Cause: fmt.Errorf("trigger email %q does not match record", t.Email)}
	case rec.RoundName != t.RoundName:
		return &records.ValidationError{Index: -1, Cause: fmt.Errorf("trigger round %q does not match record round %q", t.RoundName, rec.RoundName)}
	}
	return nil
}
