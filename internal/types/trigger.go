package types

import (
	"time"

	"github.com/google/uuid"
)

// Trigger is the input of one dispatch invocation, as handed over by the automation host.
// ResolvedLink may be empty: a round that matched no link rule still gets an invitation.
type Trigger struct {
	RecordID      uuid.UUID `json:"record_id" validate:"required"`
	CandidateName string    `json:"candidate_name" validate:"required"`
	Email         string    `json:"email" validate:"required,email"`
	Role          string    `json:"role" validate:"required"`
	RoundName     string    `json:"round_name" validate:"required"`
	ResolvedLink  string    `json:"resolved_link"`
	AddedOn       time.Time `json:"added_on" validate:"required"`
}

// Validate validates the Trigger using the validator.
func (t *Trigger) Validate() error {
	return validate.Struct(t)
}
