package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("parsing body: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: bad pattern", ErrInvalidRules), http.StatusUnprocessableEntity},
		{ErrRulesNotLoaded, http.StatusServiceUnavailable},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		{New(ErrInvalidInput, http.StatusRequestEntityTooLarge, "body too large"), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrNotFound, http.StatusNotFound, "report %d", 7)
	assert.Equal(t, "not found: report 7", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	wrapped := fmt.Errorf("loading: %w", err)
	var appErr *AppError
	assert.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}
