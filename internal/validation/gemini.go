package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aungkyaw/grn-automation/internal/llm"
	"github.com/aungkyaw/grn-automation/internal/prompts"
	internalschemas "github.com/aungkyaw/grn-automation/internal/schemas"
	"github.com/aungkyaw/grn-automation/schemas"
)

const validationModel = "gemini-2.5-pro"

var validationPromptFmt = prompts.MustGet("validation.json", "reconcile")

// Gemini implements Gateway against the Gemini API. The model's output
// is schema-checked before it is trusted; a schema violation counts as
// a failure of the call itself, not as a business rejection, and is
// retried like any other transport fault.
type Gemini struct {
	client  llm.Client
	retries int
	delay   time.Duration
	log     *logrus.Entry
}

// NewGemini creates a Gemini-backed validation gateway.
func NewGemini(client llm.Client, log *logrus.Logger) *Gemini {
	return &Gemini{
		client:  client,
		retries: 3,
		delay:   2 * time.Second,
		log:     log.WithField("component", "validation"),
	}
}

// Validate implements Gateway.
func (g *Gemini) Validate(ctx context.Context, req Request) ([]Decision, error) {
	grns, err := json.Marshal(req.MatchedGRNs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode matched grns: %w", err)
	}
	invoices, err := json.Marshal(req.Invoices)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoices: %w", err)
	}
	prompt := fmt.Sprintf(validationPromptFmt, req.Cardinality, req.VendorCode, grns, invoices)

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.delay):
			}
		}

		raw, err := g.client.GenerateJSON(ctx, validationModel, prompt)
		if err != nil {
			lastErr = fmt.Errorf("validation call failed: %w", err)
			g.log.WithError(err).WithField("attempt", attempt).Warn("validation call failed")
			continue
		}

		decisions, err := ParseDecisions(raw)
		if err != nil {
			lastErr = err
			g.log.WithError(err).WithField("attempt", attempt).Warn("validation response rejected")
			continue
		}

		g.log.WithField("decision_count", len(decisions)).Info("validation decisions received")
		return decisions, nil
	}
	return nil, lastErr
}

// ParseDecisions schema-checks and decodes the validation service's
// response.
func ParseDecisions(raw string) ([]Decision, error) {
	raw = llm.CleanJSONBlock(raw)
	if err := internalschemas.ValidateJSONString(schemas.AllocationProposal, raw); err != nil {
		return nil, fmt.Errorf("validation response failed schema check: %w", err)
	}

	var envelope struct {
		Decisions []Decision `json:"decisions"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode validation response: %w", err)
	}

	for _, d := range envelope.Decisions {
		if d.Status == StatusSuccess && len(d.Proposals) == 0 {
			return nil, fmt.Errorf("decision for invoice %s is success but carries no proposals", d.InvoiceNumber)
		}
	}
	return envelope.Decisions, nil
}
