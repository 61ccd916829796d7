package message

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yanizio/neurion/internal/store"
)

func record() store.Record {
	return store.Record{
		ID:        "4e1f",
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		NewRecord: store.NewRecord{
			FirstName:      "Jo",
			LastName:       "Li",
			Email:          "jo@example.com",
			CompanyName:    `A&B "Robotics"`,
			Budget:         store.Optional("15k-50k"),
			ProjectDetails: "Automate our onboarding emails",
		},
	}
}

type sink struct {
	mu   sync.Mutex
	hits map[string][]map[string]any
}

func (s *sink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		s.mu.Lock()
		s.hits[r.URL.Path] = append(s.hits[r.URL.Path], body)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func TestDispatcher_DeliversBothChannels(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &sink{hits: map[string][]map[string]any{}}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	hc := &http.Client{}
	defer hc.CloseIdleConnections()

	d := NewDispatcher(Options{
		HTTP:         hc,
		WebhookURL:   srv.URL + "/hook",
		MailRelayURL: srv.URL + "/mail",
		From:         "site@neurion.ai",
		To:           []string{"team@neurion.ai"},
	})
	require.True(t, d.Enabled())

	d.Notify(record())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	s.mu.Lock()
	defer s.mu.Unlock()

	require.Len(t, s.hits["/hook"], 1)
	hook := s.hits["/hook"][0]
	assert.Equal(t, "contact.submitted", hook["type"])
	assert.Equal(t, "4e1f", hook["record"].(map[string]any)["id"])

	require.Len(t, s.hits["/mail"], 1)
	mail := s.hits["/mail"][0]
	assert.Equal(t, "site@neurion.ai", mail["from"])
	assert.Equal(t, []any{"team@neurion.ai"}, mail["to"])
	assert.Contains(t, mail["subject"], "Jo Li")
}

func TestDispatcher_DisabledChannels(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{})
	assert.False(t, d.Enabled())
	d.Notify(record())
	assert.Error(t, d.EnqueueEmail(Email{}))
	require.NoError(t, d.Close(context.Background()))
	assert.ErrorIs(t, d.EnqueueWebhook(Webhook{URL: "http://x"}), ErrClosed)
}

func TestDispatcher_QueueFull(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()

	d := NewDispatcher(Options{QueueSize: 1})
	defer func() {
		close(block)
		_ = d.Close(context.Background())
	}()

	// First job is picked up by the worker, second fills the queue.
	require.NoError(t, d.EnqueueWebhook(Webhook{URL: srv.URL, Body: 1}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.EnqueueWebhook(Webhook{URL: srv.URL, Body: 2}))
	assert.ErrorIs(t, d.EnqueueWebhook(Webhook{URL: srv.URL, Body: 3}), ErrQueueFull)
}

func TestRenderEmail(t *testing.T) {
	m, err := RenderEmail(record())
	require.NoError(t, err)

	assert.Equal(t, `New contact request from Jo Li (A&B "Robotics")`, m.Subject)
	assert.Contains(t, m.Text, "Budget:  15k-50k")
	assert.NotContains(t, m.Text, "Phone:")
	assert.Contains(t, m.HTML, "Automate our onboarding emails")
	assert.Contains(t, m.HTML, "A&amp;B")
	assert.NotContains(t, m.HTML, "Phone")
	assert.Contains(t, m.HTML, "2025-03-01 10:00 UTC")
}
