// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/ingestion"
	"github.com/jonathan/interview-dispatch/internal/splitter"
	"github.com/jonathan/interview-dispatch/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintImportSummary outputs the result of a CSV import.
func (p *Printer) PrintImportSummary(summary *ingestion.ImportSummary) {
	if summary == nil {
		return
	}
	content := fmt.Sprintf("Rows read:        %d\nMasters created:  %d", summary.Rows, summary.Created)
	p.printBox("CSV IMPORT", content)
}

// PrintSplitPlan outputs the rounds a split would create, without writing anything.
func (p *Printer) PrintSplitPlan(plan splitter.Plan) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rounds to create:   %d\n", len(plan.Creates)))
	sb.WriteString(fmt.Sprintf("Masters to delete:  %d\n", len(plan.Deletes)))
	sb.WriteString(fmt.Sprintf("Duplicates skipped: %d\n", plan.Duplicates))
	sb.WriteString(fmt.Sprintf("Masters skipped:    %d\n", plan.Skipped))

	if len(plan.Creates) > 0 {
		sb.WriteString("\n")
		count := min(len(plan.Creates), maxItemsToShow)
		for i := 0; i < count; i++ {
			in := plan.Creates[i]
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", in.Email, in.RoundName))
			if in.ResolvedLink == "" {
				sb.WriteString("    (no scheduling link)\n")
			}
		}
		if len(plan.Creates) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(plan.Creates)-maxItemsToShow))
		}
	}

	p.printBox("SPLIT PLAN (DRY RUN)", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSplitSummary outputs the result of a split run.
func (p *Printer) PrintSplitSummary(summary *splitter.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Masters selected:   %d\n", summary.Selected))
	sb.WriteString(fmt.Sprintf("Rounds created:     %d\n", summary.Created))
	sb.WriteString(fmt.Sprintf("Duplicates skipped: %d\n", summary.Duplicates))
	sb.WriteString(fmt.Sprintf("Masters skipped:    %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("Masters deleted:    %d", summary.Deleted))

	p.printBox("SPLIT SUMMARY", sb.String())
}

// PrintDispatchResult outputs a single dispatched invitation.
func (p *Printer) PrintDispatchResult(result *types.DispatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Record:     %s\n", result.RecordID))
	sb.WriteString(fmt.Sprintf("Sent at:    %s\n", result.MailSentTime.UTC().Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("TAT:        %.2f hours", result.TATHours))

	p.printBox("INVITATION SENT", sb.String())
}

// PrintBatchSummary outputs the result of a pending dispatch pass, listing the first failures.
func (p *Printer) PrintBatchSummary(summary *dispatch.BatchSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pending:  %d\n", summary.Pending))
	sb.WriteString(fmt.Sprintf("Sent:     %d\n", summary.Sent))
	sb.WriteString(fmt.Sprintf("Failed:   %d\n", summary.Failed))

	if len(summary.Results) > 0 {
		var total float64
		for _, r := range summary.Results {
			total += r.TATHours
		}
		sb.WriteString(fmt.Sprintf("Avg TAT:  %.2f hours\n", total/float64(len(summary.Results))))
	}

	if len(summary.Failures) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(summary.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := summary.Failures[i]
			sb.WriteString(fmt.Sprintf("  ✗ %s (%s), %d attempt(s)\n", f.Email, f.RoundName, f.Attempts))
			sb.WriteString(fmt.Sprintf("    %s\n", f.Message))
		}
		if len(summary.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(summary.Failures)-maxItemsToShow))
		}
	}

	p.printBox("DISPATCH SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecords outputs a compact listing of records.
func (p *Printer) PrintRecords(recs []types.Record) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total records: %d\n", len(recs)))

	for _, rec := range recs {
		sb.WriteString("\n")
		switch {
		case rec.IsMaster():
			sb.WriteString(fmt.Sprintf("[master]  %s <%s>\n", rec.CandidateName, rec.Email))
			sb.WriteString(fmt.Sprintf("    Rounds: %s\n", rec.RoundsRaw))
		case rec.MailSentTime == nil:
			sb.WriteString(fmt.Sprintf("[pending] %s: %s\n", rec.Email, rec.RoundName))
		default:
			sb.WriteString(fmt.Sprintf("[sent]    %s: %s\n", rec.Email, rec.RoundName))
			if rec.TATHours != nil {
				sb.WriteString(fmt.Sprintf("    TAT: %.2f hours\n", *rec.TATHours))
			}
		}
	}

	p.printBox("INTERVIEW RECORDS", strings.TrimSuffix(sb.String(), "\n"))
}
