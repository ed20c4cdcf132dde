package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// grnSelectFields is the header+line projection requested from the ERP
// for open GRN queries.
const grnSelectFields = "DocEntry,DocNum,DocDate,TaxDate,CardCode,CardName," +
	"DocCurrency,DocTotal,VatSum,BPLId,DocumentLines"

// FetchOpenGRNs retrieves every open goods receipt note for the vendor,
// page by page. A page shorter than the configured page size ends the
// scan. Records are accumulated in request order; the ERP guarantees
// uniqueness by DocEntry so no deduplication happens here.
func (c *Client) FetchOpenGRNs(ctx context.Context, vendorCode string) ([]OpenGRN, error) {
	sessionID, err := c.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("CardCode eq '%s' and DocumentStatus eq 'bost_Open'", vendorCode)

	var grns []OpenGRN
	for offset := 0; ; offset += c.cfg.PageSize {
		page, err := c.fetchGRNPage(ctx, sessionID, vendorCode, filter, offset)
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			grns = append(grns, Normalize(raw))
		}
		if len(page) < c.cfg.PageSize {
			break
		}
	}

	c.log.WithFields(map[string]any{
		"vendor_code": vendorCode,
		"grn_count":   len(grns),
	}).Info("fetched open grns")
	return grns, nil
}

// fetchGRNPage requests one page of open GRNs. Transient transport
// failures (connection errors, 5xx, 429) are retried up to the
// configured bound with a fixed delay; a malformed response body aborts
// immediately since retrying cannot fix it.
func (c *Client) fetchGRNPage(ctx context.Context, sessionID, vendorCode, filter string, offset int) ([]map[string]any, error) {
	var lastErr *FetchError
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
				"$select": grnSelectFields,
				"$top":    strconv.Itoa(c.cfg.PageSize),
				"$skip":   strconv.Itoa(offset),
			}).
			Get("/PurchaseDeliveryNotes")
		if err != nil {
			lastErr = &FetchError{VendorCode: vendorCode, Message: "grn page request failed", Transient: true, Cause: err}
			c.log.WithError(err).WithField("attempt", attempt).Warn("grn page request failed")
			continue
		}
		if code := resp.StatusCode(); code >= 500 || code == 429 {
			lastErr = &FetchError{VendorCode: vendorCode, Message: fmt.Sprintf("grn page returned status %d", code), Transient: true}
			c.log.WithFields(map[string]any{"status": code, "attempt": attempt}).Warn("grn page request rejected")
			continue
		}
		if resp.StatusCode() != 200 {
			return nil, &FetchError{
				VendorCode: vendorCode,
				Message:    fmt.Sprintf("grn page returned status %d: %s", resp.StatusCode(), resp.String()),
			}
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, &FetchError{VendorCode: vendorCode, Message: "malformed grn page body", Cause: err}
		}
		rawValue, ok := body["value"]
		if !ok {
			return nil, &FetchError{VendorCode: vendorCode, Message: "grn page body has no value collection"}
		}
		var page []map[string]any
		if err := json.Unmarshal(rawValue, &page); err != nil {
			return nil, &FetchError{VendorCode: vendorCode, Message: "malformed grn value collection", Cause: err}
		}
		return page, nil
	}
	return nil, lastErr
}

// LookupVendorCode resolves a supplier's card code from its exact name.
// Used only when document extraction did not yield a vendor code.
func (c *Client) LookupVendorCode(ctx context.Context, vendorName string) (string, error) {
	sessionID, err := c.sessions.Ensure(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Cookie", sessionCookie(sessionID)).
		SetQueryParams(map[string]string{
			"$filter": fmt.Sprintf("CardType eq 'cSupplier' and CardName eq '%s'", vendorName),
			"$select": "CardCode,CardName",
		}).
		Get("/BusinessPartners")
	if err != nil {
		return "", fmt.Errorf("failed to look up vendor code: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vendor lookup returned status %d", resp.StatusCode())
	}

	var body struct {
		Value []struct {
			CardCode string `json:"CardCode"`
			CardName string `json:"CardName"`
		} `json:"value"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("failed to decode vendor lookup response: %w", err)
	}
	if len(body.Value) == 0 {
		return "", fmt.Errorf("no supplier found matching name %q", vendorName)
	}
	return body.Value[0].CardCode, nil
}
