package admin

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, nil)), buf
}

func auditEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		if entry["msg"] == "admin API audit" {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestAuditMiddleware_LogsMutatingRequests(t *testing.T) {
	logger, buf := captureLogs()
	h := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/stop", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := auditEntries(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "POST", e["method"])
	assert.Equal(t, "/admin/v1/stop", e["path"])
	assert.Equal(t, "10.1.2.3:4567", e["remote_addr"])
	assert.EqualValues(t, http.StatusAccepted, e["response_status"])
	assert.NotEmpty(t, e["request_id"])
}

func TestAuditMiddleware_SkipsReads(t *testing.T) {
	logger, buf := captureLogs()
	h := AuditMiddleware(logger, okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil))

	assert.Empty(t, auditEntries(t, buf))
}

func TestAuditMiddleware_DefaultStatusIs200(t *testing.T) {
	logger, buf := captureLogs()
	// Handler writes a body without an explicit WriteHeader.
	h := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	entries := auditEntries(t, buf)
	require.Len(t, entries, 1)
	assert.EqualValues(t, http.StatusOK, entries[0]["response_status"])
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a := generateRequestID()
	b := generateRequestID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
