package httpapi

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

func TestWriteErrorTranslatesTypedError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, cerrors.New(cerrors.CodeNotFound, "file not found"))

	assert.Equal(t, 404, rec.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, 404, env.Error.StatusCode)
}

func TestWriteErrorHidesUntypedErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("some internal leak: password=hunter2"))

	assert.Equal(t, 500, rec.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
}

func TestWriteErrorIncludesContext(t *testing.T) {
	rec := httptest.NewRecorder()
	err := cerrors.New(cerrors.CodeFileSizeLimit, "quota exceeded").WithContext(map[string]any{"violations": []string{"STORAGE_EXCEEDED"}})
	writeError(rec, err)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Error.Context["violations"])
}
