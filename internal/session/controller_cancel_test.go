package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/neurion/internal/store"
	"github.com/yanizio/neurion/internal/submission"
)

func TestController_SubmitSurvivesCallerCancel(t *testing.T) {
	st := &stubStore{gate: make(chan struct{})}
	c := newTestController(t, st, time.Hour)
	fill(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		out submission.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := c.Submit(ctx)
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool { return st.inserts.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, c.Submitting(), "attempt still in flight after cancel")
	close(st.gate)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.out.Success, res.out.Err)
	assert.True(t, c.Snapshot().IsEmpty())
	assert.Equal(t, StatusSuccess, c.Status().Type)
}

// A slow REST insert must finish even when the request deadline passes
// while the row is being written.
func TestController_SlowRESTInsertOutlivesDeadline(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		posts.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/vnd.pgrst.object+json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"0d9c","created_at":"2025-01-01T00:00:00Z","first_name":"Jo","last_name":"Li","email":"a@b.co","phone":null,"company_name":"Co","service_interest":null,"budget":null,"project_details":"0123456789"}`))
	}))
	defer srv.Close()

	st, err := store.NewPostgREST(store.PostgRESTConfig{URL: srv.URL, APIKey: "anon"})
	require.NoError(t, err)
	c := NewController(submission.New(st), Options{SuccessDelay: time.Hour})
	defer c.Close()
	fill(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out, err := c.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), posts.Load())
	assert.True(t, out.Success, out.Err)
	require.NotNil(t, out.Record)
	assert.Equal(t, "0d9c", out.Record.ID)
	assert.True(t, c.Snapshot().IsEmpty())
	assert.Equal(t, Status{Type: StatusSuccess, Message: submission.MsgSuccess}, c.Status())
}
