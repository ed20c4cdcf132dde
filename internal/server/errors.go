package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/sap"
)

// NotFoundError indicates the requested resource does not exist or is
// not visible to the caller.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError indicates a malformed or semantically invalid request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// HTTPStatus maps an error to the status code the handler should
// respond with.
func HTTPStatus(err error) int {
	var notFound *NotFoundError
	var invalid *ValidationError
	var authErr *sap.AuthError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, db.ErrAlreadyPosted):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
