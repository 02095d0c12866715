package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfSurvivesWrapping(t *testing.T) {
	base := New(CodeProfileNotFound, "profile not found", "user_id", "u1")
	wrapped := fmt.Errorf("loading profile: %w", base)

	assert.Equal(t, CodeProfileNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "u1", FieldsOf(base)["user_id"])
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeStoreDatabase, "ignored"))
	assert.NoError(t, Wrapf(nil, CodeStoreDatabase, "ignored %d", 1))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeRequestInvalid, http.StatusBadRequest},
		{CodeStoreInvalidInput, http.StatusBadRequest},
		{CodeProfileNotFound, http.StatusNotFound},
		{CodeAuthUnauthorized, http.StatusUnauthorized},
		{CodeAuthForbidden, http.StatusForbidden},
		{CodeProviderTimeout, http.StatusGatewayTimeout},
		{CodeProviderUpstream, http.StatusBadGateway},
		{CodeStoreDatabase, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(New(tc.code, "x")))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
