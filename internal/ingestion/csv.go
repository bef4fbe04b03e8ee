// Package ingestion imports candidate MasterRecords from CSV exports.
package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// CSV column headers, matched case-insensitively.
const (
	ColumnCandidateName = "Candidate Name"
	ColumnEmail         = "Email"
	ColumnRole          = "Role"
	ColumnRounds        = "Interview Rounds"
	ColumnCalendlyHR    = "Calendly HR"
	ColumnCalendlyTech  = "Calendly Tech"
	ColumnCalendlyHM    = "Calendly Hiring Manager"
	ColumnAddedOn       = "Added On"
)

var requiredColumns = []string{ColumnCandidateName, ColumnEmail, ColumnRounds, ColumnRole}

// AddedOnLayouts are the accepted "Added On" formats, tried in order.
var AddedOnLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// RowError reports an invalid CSV row by its 1-based line number.
type RowError struct {
	Line  int
	Cause error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Cause)
}

func (e *RowError) Unwrap() error {
	return e.Cause
}

// Options configures an import.
type Options struct {
	BatchSize int
	// Now stamps rows whose "Added On" is empty; defaults to time.Now.
	Now func() time.Time
}

// ImportSummary reports an import.
type ImportSummary struct {
	Rows    int         `json:"rows"`
	Created int         `json:"created"`
	IDs     []uuid.UUID `json:"ids,omitempty"`
}

// ParseCSV reads every row into a MasterRecord input. Any invalid row fails the whole parse.
func ParseCSV(r io.Reader, now time.Time) ([]types.RecordInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[normalizeHeader(col)]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[normalizeHeader(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return cleanCell(row[i])
	}

	var inputs []types.RecordInput
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RowError{Line: pe.Line, Cause: pe.Err}
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		addedOn, err := parseAddedOn(cell(row, ColumnAddedOn), now)
		if err != nil {
			return nil, &RowError{Line: line, Cause: err}
		}

		in := types.RecordInput{
			CandidateName: cell(row, ColumnCandidateName),
			Email:         cell(row, ColumnEmail),
			Role:          cell(row, ColumnRole),
			RoundsRaw:     cell(row, ColumnRounds),
			Links: types.Links{
				HR:            cell(row, ColumnCalendlyHR),
				Tech:          cell(row, ColumnCalendlyTech),
				HiringManager: cell(row, ColumnCalendlyHM),
			},
			AddedOn: addedOn,
			Status:  types.SplitStatusUnsplit,
		}
		if err := in.Validate(); err != nil {
			return nil, &RowError{Line: line, Cause: err}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// ImportCSV parses r and creates one MasterRecord per row in batches.
// Nothing is written unless every row parses.
func ImportCSV(ctx context.Context, r io.Reader, store records.Client, opts Options) (*ImportSummary, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	inputs, err := ParseCSV(r, now())
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Rows: len(inputs)}
	if len(inputs) == 0 {
		return summary, nil
	}

	ids, err := records.CreateInBatches(ctx, store, inputs, opts.BatchSize)
	summary.Created = len(ids)
	summary.IDs = ids
	if err != nil {
		return summary, fmt.Errorf("failed to import records: %w", err)
	}
	return summary, nil
}

func parseAddedOn(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	for _, layout := range AddedOnLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized %q value: %s", ColumnAddedOn, value)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}
