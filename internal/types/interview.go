// Package types provides type definitions for the interview records shared by the splitter,
// the dispatcher and the record stores.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SplitStatus marks whether a record is a composite master row or a single-round row.
type SplitStatus string

const (
	// SplitStatusUnsplit marks a MasterRecord waiting to be exploded into rounds.
	SplitStatusUnsplit SplitStatus = "unsplit"
	// SplitStatusSplit marks a RoundRecord produced by the splitter.
	SplitStatusSplit SplitStatus = "split"
)

// DispatchState is derived from MailSentTime; there is no stored failed state.
type DispatchState string

const (
	DispatchStatePending DispatchState = "pending"
	DispatchStateSent    DispatchState = "sent"
)

// LinkCategory names one of the scheduling link columns.
type LinkCategory string

const (
	LinkCategoryNone          LinkCategory = ""
	LinkCategoryHR            LinkCategory = "hr"
	LinkCategoryTech          LinkCategory = "tech"
	LinkCategoryHiringManager LinkCategory = "hiring_manager"
)

// Links holds the per-category scheduling links of a candidate.
type Links struct {
	HR            string `json:"hr,omitempty"`
	Tech          string `json:"tech,omitempty"`
	HiringManager string `json:"hiring_manager,omitempty"`
}

// For returns the link stored for the given category, or "" for LinkCategoryNone.
func (l Links) For(category LinkCategory) string {
	switch category {
	case LinkCategoryHR:
		return l.HR
	case LinkCategoryTech:
		return l.Tech
	case LinkCategoryHiringManager:
		return l.HiringManager
	default:
		return ""
	}
}

// Record is one row of the interviews table.
// A row with Status unsplit is a MasterRecord; a row with Status split is a RoundRecord.
type Record struct {
	ID            uuid.UUID   `json:"id"`
	CandidateName string      `json:"candidate_name"`
	Email         string      `json:"email"`
	Role          string      `json:"role"`
	RoundsRaw     string      `json:"interview_rounds"`
	Links         Links       `json:"links"`
	AddedOn       time.Time   `json:"added_on"`
	RoundName     string      `json:"round_name,omitempty"`
	ResolvedLink  string      `json:"resolved_link,omitempty"`
	Status        SplitStatus `json:"status"`
	MailSentTime  *time.Time  `json:"mail_sent_time,omitempty"`
	TATHours      *float64    `json:"tat_hours,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// IsMaster reports whether the record still needs splitting.
// A record that already carries a round name is never treated as a master.
func (r *Record) IsMaster() bool {
	return r.Status == SplitStatusUnsplit && r.RoundName == ""
}

// DispatchState reports whether an invitation has been recorded for this record.
func (r *Record) DispatchState() DispatchState {
	if r.MailSentTime == nil {
		return DispatchStatePending
	}
	return DispatchStateSent
}

// Trigger converts a RoundRecord into dispatch input.
func (r *Record) Trigger() Trigger {
	return Trigger{
		RecordID:      r.ID,
		CandidateName: r.CandidateName,
		Email:         r.Email,
		Role:          r.Role,
		RoundName:     r.RoundName,
		ResolvedLink:  r.ResolvedLink,
		AddedOn:       r.AddedOn,
	}
}

// RecordInput is the payload for creating a record.
type RecordInput struct {
	ID            uuid.UUID   `json:"id,omitempty"`
	CandidateName string      `json:"candidate_name" validate:"required"`
	Email         string      `json:"email" validate:"required,email"`
	Role          string      `json:"role" validate:"required"`
	RoundsRaw     string      `json:"interview_rounds"`
	Links         Links       `json:"links"`
	AddedOn       time.Time   `json:"added_on" validate:"required"`
	RoundName     string      `json:"round_name,omitempty" validate:"required_if=Status split,excluded_if=Status unsplit"`
	ResolvedLink  string      `json:"resolved_link,omitempty"`
	Status        SplitStatus `json:"status" validate:"required,oneof=unsplit split"`
}

// Validate validates the RecordInput using the validator.
func (r *RecordInput) Validate() error {
	return validate.Struct(r)
}

// RecordUpdate carries the dispatch outcome. Both fields are written together or not at all.
type RecordUpdate struct {
	MailSentTime *time.Time `json:"mail_sent_time" validate:"required"`
	TATHours     *float64   `json:"tat_hours" validate:"required,gte=0"`
}

// Validate validates the RecordUpdate using the validator.
func (u *RecordUpdate) Validate() error {
	return validate.Struct(u)
}

// DispatchResult is the outcome of a successful dispatch.
type DispatchResult struct {
	RecordID     uuid.UUID `json:"record_id"`
	MailSentTime time.Time `json:"mail_sent_time"`
	TATHours     float64   `json:"tat_hours"`
}

// Update returns the store update that records this result.
func (d *DispatchResult) Update() RecordUpdate {
	sent := d.MailSentTime
	hours := d.TATHours
	return RecordUpdate{MailSentTime: &sent, TATHours: &hours}
}

var validate = validator.New(validator.WithRequiredStructEnabled())
