package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New(KindValidation, "BAD_INITIALS", "initials must be 2 chars")
	assert.Contains(t, e.Error(), "ValidationError")
	assert.Contains(t, e.Error(), "BAD_INITIALS")

	wrapped := Wrap(errors.New("boom"), KindPersistence, "DB_FAIL", "write failed")
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindDomainRule, http.StatusConflict},
		{KindLifecycle, http.StatusConflict},
		{KindAuthentication, http.StatusUnauthorized},
		{KindAuthorization, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidCsv, http.StatusBadRequest},
		{KindPersistence, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := New(tt.kind, "CODE", "msg")
		assert.Equal(t, tt.want, e.HTTPStatus())
	}
}

func TestLifecycleRuleIsCarried(t *testing.T) {
	e := Lifecycle("area_creation_lifecycle", "areas are locked after canonicalization")
	assert.Equal(t, "area_creation_lifecycle", e.Rule)
	assert.Equal(t, KindLifecycle, e.Kind)
}

func TestAs(t *testing.T) {
	e := NotFound("Area", "ZZZ")
	got, ok := As(e)
	assert.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsKind(t *testing.T) {
	e := AuthorizationFailed("not an admin")
	assert.True(t, IsKind(e, KindAuthorization))
	assert.False(t, IsKind(e, KindValidation))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	outer := Persistence(inner)
	assert.ErrorIs(t, outer, inner)
}
