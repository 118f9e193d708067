package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFindsWrappedError(t *testing.T) {
	t.Parallel()

	base := New(CodeOverclaimed, "only 2 left")
	wrapped := fmt.Errorf("handling claim: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeOverclaimed, typed.Code())
	assert.Equal(t, "only 2 left", typed.Message())

	assert.Nil(t, As(fmt.Errorf("plain error")))
	assert.Nil(t, As(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeDependency, cause, "pinging redis")

	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "DEPENDENCY_ERROR: pinging redis", err.Error())

	// Wrapping nil degrades to a plain coded error.
	assert.Nil(t, Wrap(CodeInternal, nil, "boom").Unwrap())
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	details := map[string]string{"field": "quantity"}
	err := New(CodeValidation, "bad input").WithDetails(details)
	assert.Equal(t, details, err.Details())
}

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeOverclaimed, http.StatusConflict},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, MetadataFor(tc.code).HTTPStatus, string(tc.code))
	}

	// Unknown codes map to the internal bucket.
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("MYSTERY")).HTTPStatus)

	assert.True(t, MetadataFor(CodeOverclaimed).DetailsAllowed)
	assert.False(t, MetadataFor(CodeForbidden).DetailsAllowed)
}
