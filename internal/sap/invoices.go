package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PostInvoice submits an AP invoice to the ERP. Timeouts, transport
// failures, and 5xx responses are retried up to the configured bound
// with a fixed delay and surface as retryable PostingErrors when
// exhausted. An ERP rejection (4xx) is terminal and carries the ERP's
// own error text verbatim.
func (c *Client) PostInvoice(ctx context.Context, payload InvoicePayload) (*PostedInvoice, error) {
	sessionID, err := c.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	log := c.log.WithFields(map[string]any{
		"card_code":  payload.CardCode,
		"vendor_ref": payload.NumAtCard,
	})

	var lastErr *PostingError
	for attempt := 1; attempt <= c.cfg.PostRetries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.cfg.PostRetryDelay); err != nil {
				return nil, err
			}
		}

		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeader("Cookie", sessionCookie(sessionID)).
			SetBody(payload).
			Post("/PurchaseInvoices")
		if err != nil {
			lastErr = &PostingError{Retryable: true, Message: "invoice post request failed", Cause: err}
			log.WithError(err).WithField("attempt", attempt).Warn("invoice post request failed")
			continue
		}

		switch code := resp.StatusCode(); {
		case code == 200 || code == 201:
			var posted PostedInvoice
			if err := json.Unmarshal(resp.Body(), &posted); err != nil {
				return nil, &PostingError{Message: "malformed invoice post response", Cause: err}
			}
			log.WithField("doc_entry", posted.DocEntry).Info("invoice posted")
			return &posted, nil
		case code >= 500 || code == 429:
			lastErr = &PostingError{Retryable: true, Message: fmt.Sprintf("invoice post returned status %d", code)}
			log.WithFields(map[string]any{"status": code, "attempt": attempt}).Warn("invoice post rejected transiently")
		default:
			return nil, &PostingError{Message: erpErrorMessage(resp.Body())}
		}
	}
	return nil, lastErr
}

// GetInvoiceByDocNum looks up a posted AP invoice by its document
// number, optionally narrowed to one vendor. Returns (nil, nil) when no
// invoice matches.
func (c *Client) GetInvoiceByDocNum(ctx context.Context, docNum int, cardCode string) (*PostedInvoice, error) {
	sessionID, err := c.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("DocNum eq %d", docNum)
	if cardCode != "" {
		filter += fmt.Sprintf(" and CardCode eq '%s'", cardCode)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.FetchRetries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.cfg.FetchRetryDelay); err != nil {
				return nil, err
			}
		}

		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeader("Cookie", sessionCookie(sessionID)).
			SetQueryParams(map[string]string{
				"$filter": filter,
				"$select": "DocEntry,DocNum,CardCode,DocDate,NumAtCard",
				"$top":    "1",
			}).
			Get("/PurchaseInvoices")
		if err != nil {
			lastErr = fmt.Errorf("invoice lookup failed: %w", err)
			continue
		}
		if code := resp.StatusCode(); code >= 500 || code == 429 {
			lastErr = fmt.Errorf("invoice lookup returned status %d", code)
			continue
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("invoice lookup returned status %d: %s", resp.StatusCode(), resp.String())
		}

		var body struct {
			Value []PostedInvoice `json:"value"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("failed to decode invoice lookup response: %w", err)
		}
		if len(body.Value) == 0 {
			return nil, nil
		}
		return &body.Value[0], nil
	}
	return nil, lastErr
}

// erpErrorMessage extracts the human-readable message from a Service
// Layer OData error envelope, falling back to the raw body.
func erpErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message.Value != "" {
		return envelope.Error.Message.Value
	}
	return strings.TrimSpace(string(body))
}
