package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorContext(t *testing.T) {
	t.Run("SetOperatorContext and GetOperatorFromContext", func(t *testing.T) {
		ctx := SetOperatorContext(context.Background(), "ops@billing.test", "admin")

		subject, ok := GetOperatorFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, "ops@billing.test", subject)
		assert.Equal(t, "admin", GetOperatorRoleFromContext(ctx))
	})

	t.Run("Empty context", func(t *testing.T) {
		_, ok := GetOperatorFromContext(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "", GetOperatorRoleFromContext(context.Background()))
	})
}

func TestIsInternalRequest(t *testing.T) {
	assert.False(t, IsInternalRequest(context.Background()))
	assert.True(t, IsInternalRequest(WithInternalRequest(context.Background())))
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONError(w, "something failed", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "something failed", body["error"])
}

func TestFlatten(t *testing.T) {
	values := url.Values{
		"tran_id": {"T1", "T2"},
		"status":  {"VALID"},
		"empty":   {},
	}

	out := Flatten(values)

	assert.Equal(t, map[string]string{"tran_id": "T1", "status": "VALID"}, out)
}

func TestPtrHelpers(t *testing.T) {
	ref := "test"
	assert.Equal(t, "test", PtrString(&ref))
	assert.Equal(t, "", PtrString(nil))
}
