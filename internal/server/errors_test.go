package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/sap"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", &NotFoundError{Resource: "run", ID: "abc"}, http.StatusNotFound},
		{"validation", &ValidationError{Message: "bad input"}, http.StatusBadRequest},
		{"already posted", db.ErrAlreadyPosted, http.StatusConflict},
		{"wrapped already posted", fmt.Errorf("retry: %w", db.ErrAlreadyPosted), http.StatusConflict},
		{"erp auth failure", &sap.AuthError{Message: "login rejected"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "run abc not found", (&NotFoundError{Resource: "run", ID: "abc"}).Error())
	assert.Equal(t, "validation error: bad input", (&ValidationError{Message: "bad input"}).Error())
}
