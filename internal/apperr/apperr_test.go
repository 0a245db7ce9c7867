package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesRegisteredKind(t *testing.T) {
	e := New(CodeStoreFullyBooked)
	assert.Equal(t, KindConflict, e.Kind)
	assert.Equal(t, CodeStoreFullyBooked, e.Code)
	assert.NotEmpty(t, e.Message)
}

func TestErrorsIs_MatchesOnCode(t *testing.T) {
	err := fmt.Errorf("create: %w", New(CodeDuplicateReservation))
	assert.True(t, errors.Is(err, New(CodeDuplicateReservation)))
	assert.False(t, errors.Is(err, New(CodeStoreFullyBooked)))
}

func TestFrom_WrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset")
	e := From(cause)
	require.NotNil(t, e)
	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, cause)
	assert.Nil(t, From(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(New(CodeReviewNotFound).Kind))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(New(CodeInvalidStoreOwner).Kind))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(CodeReviewAlreadyExists).Kind))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(CodeLateCheckin).Kind))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(New(CodeInvalidCredentials).Kind))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal(errors.New("x")).Kind))
}
