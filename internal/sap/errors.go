package sap

import "fmt"

// AuthError indicates the ERP rejected the configured credentials or the
// login exchange itself failed.
type AuthError struct {
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("erp auth error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("erp auth error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// FetchError indicates the open-GRN fetch failed. Transient errors have
// already exhausted their retry budget by the time a FetchError surfaces;
// non-transient errors (malformed response shape) abort immediately.
type FetchError struct {
	VendorCode string
	Message    string
	Transient  bool
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("grn fetch error for vendor %s: %s: %v", e.VendorCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("grn fetch error for vendor %s: %s", e.VendorCode, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// PostingError indicates the invoice post failed. Retryable errors are
// timeouts and transport failures; terminal errors are ERP rejections and
// carry the ERP's own message verbatim for operator diagnosis.
type PostingError struct {
	Retryable bool
	Message   string
	Cause     error
}

func (e *PostingError) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Cause != nil {
		return fmt.Sprintf("invoice posting error (%s): %s: %v", kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("invoice posting error (%s): %s", kind, e.Message)
}

func (e *PostingError) Unwrap() error {
	return e.Cause
}
