// Package observability provides formatted terminal output for CLI runs.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/aungkyaw/grn-automation/internal/db"
)

// boxWidth is the width of formatted output boxes.
const boxWidth = 72

// Printer renders runs and reconciliation outcomes for a terminal.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer that writes to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs a run summary with its step history.
func (p *Printer) PrintRun(run *db.Run, steps []db.Step) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document:    %s\n", run.Filename))
	sb.WriteString(fmt.Sprintf("Cardinality: %s\n", run.Cardinality))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", run.Status))
	sb.WriteString("\n")
	for _, step := range steps {
		marker := "✓"
		if step.Status == db.StepStatusFailed {
			marker = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %-18s %s\n", marker, step.Name, step.Message))
	}

	p.printBox(fmt.Sprintf("Run %s", run.ID), strings.TrimRight(sb.String(), "\n"))
}

// PrintResults outputs the per-invoice reconciliation outcomes.
func (p *Printer) PrintResults(results []db.ReconciliationResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Invoice %s\n", result.InvoiceNumber))
		sb.WriteString(fmt.Sprintf("  validation: %-8s %s\n", result.ValidationStatus, result.Message))
		sb.WriteString(fmt.Sprintf("  posting:    %-8s %s\n", result.PostingStatus, result.PostingMessage))
		if result.PostedDocEntry != nil {
			sb.WriteString(fmt.Sprintf("  posted doc entry: %d (vendor ref %s)\n", *result.PostedDocEntry, result.VendorRef))
		}
	}

	p.printBox(fmt.Sprintf("Reconciliation results (%d)", len(results)), strings.TrimRight(sb.String(), "\n"))
}
