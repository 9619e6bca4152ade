package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() Alert {
	return Alert{
		Type:    AlertTypePhaseTransition,
		RunID:   "run-42",
		Title:   "phase ramp_up -> ramp_down",
		Message: "errors or backpressure detected",
		Fields: map[string]string{
			"tps": "150.0",
		},
	}
}

// TestMultiAlerter_Send_AllChannels verifies that MultiAlerter fans out to
// every registered alerter (Slack + webhook) on a single Send call.
func TestMultiAlerter_Send_AllChannels(t *testing.T) {
	var slackHits, webhookHits atomic.Int64

	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer slackSrv.Close()

	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer webhookSrv.Close()

	m := NewMultiAlerter(time.Minute, testLogger(),
		NewSlackAlerter(slackSrv.URL),
		NewWebhookAlerter(webhookSrv.URL))

	require.NoError(t, m.Send(context.Background(), testAlert()))
	assert.Equal(t, int64(1), slackHits.Load())
	assert.Equal(t, int64(1), webhookHits.Load())
}

func TestMultiAlerter_CooldownSuppressesDuplicates(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMultiAlerter(time.Hour, testLogger(), NewWebhookAlerter(srv.URL))

	a := testAlert()
	require.NoError(t, m.Send(context.Background(), a))
	require.NoError(t, m.Send(context.Background(), a))
	require.NoError(t, m.Send(context.Background(), a))
	assert.Equal(t, int64(1), hits.Load(), "repeats inside the cooldown are suppressed")

	// A different alert type has its own cooldown key.
	b := a
	b.Type = AlertTypeRecovery
	require.NoError(t, m.Send(context.Background(), b))
	assert.Equal(t, int64(2), hits.Load())
}

func TestMultiAlerter_CooldownExpires(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMultiAlerter(50*time.Millisecond, testLogger(), NewWebhookAlerter(srv.URL))

	require.NoError(t, m.Send(context.Background(), testAlert()))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, m.Send(context.Background(), testAlert()))
	assert.Equal(t, int64(2), hits.Load())
}

func TestMultiAlerter_ReturnsFirstError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	var ok atomic.Int64
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	m := NewMultiAlerter(time.Minute, testLogger(),
		NewWebhookAlerter(failing.URL),
		NewWebhookAlerter(healthy.URL))

	err := m.Send(context.Background(), testAlert())
	assert.Error(t, err)
	assert.Equal(t, int64(1), ok.Load(), "one failing channel does not block the rest")
}

func TestWebhookAlerter_PayloadShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookAlerter(srv.URL).Send(context.Background(), testAlert()))

	assert.Equal(t, "PHASE_TRANSITION", got["type"])
	assert.Equal(t, "run-42", got["run_id"])
	assert.Equal(t, "phase ramp_up -> ramp_down", got["title"])
	fields, ok := got["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "150.0", fields["tps"])
}

func TestSlackAlerter_TextIncludesRunAndFields(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewSlackAlerter(srv.URL).Send(context.Background(), testAlert()))

	text := got["text"]
	assert.True(t, strings.Contains(text, "run-42"), "text: %s", text)
	assert.True(t, strings.Contains(text, "PHASE_TRANSITION"), "text: %s", text)
	assert.True(t, strings.Contains(text, "tps"), "text: %s", text)
}

func TestWebhookAlerter_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.Error(t, NewWebhookAlerter(srv.URL).Send(context.Background(), testAlert()))
}

func TestNoopAlerter(t *testing.T) {
	assert.NoError(t, (&NoopAlerter{}).Send(context.Background(), testAlert()))
}
