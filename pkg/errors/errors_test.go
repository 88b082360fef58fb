package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypePredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("bad input")))
	assert.True(t, IsNotFound(NewNotFoundError("entity")))
	assert.True(t, IsExtraction(NewExtractionError("ollama", fmt.Errorf("down"))))
	assert.True(t, IsUnavailable(NewUnavailableError("graph store")))

	assert.False(t, IsExtraction(NewValidationError("bad input")))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewValidationError("x").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("x").HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, NewExtractionError("x", nil).HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, NewUnavailableError("x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewDatabaseError("x", nil).HTTPStatus)
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("persist entry: %w", NewExtractionError("openai", fmt.Errorf("502")))
	assert.True(t, IsExtraction(wrapped))

	appErr := GetAppError(wrapped)
	assert.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeExtraction, appErr.Type)
}

func TestWrapPreservesAppError(t *testing.T) {
	err := Wrap(NewNotFoundError("entity"), "load entity")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "load entity")

	internal := Wrap(fmt.Errorf("boom"), "do work")
	assert.True(t, IsType(internal, ErrorTypeInternal))
}
