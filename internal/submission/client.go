// internal/submission/client.go
//
// Submission client: one insert per attempt, mapped into an Outcome.
//
// Context
// -------
// The client sits between the form session and the persistence boundary.
// It never retries and never queues.  Callers probe first with
// CheckConnectivity so an offline visitor gets a clear message instead of an
// ambiguous partial failure.
//
// Workflow
// --------
//  1. NewRecord – trim every field, lowercase email, empty optionals → nil.
//  2. Insert    – exactly once, detached from caller cancellation.
//  3. Map       – 23505 → duplicate, 42501 → permission, else generic.
//  4. Notify    – on success only, fire-and-forget.
//
// Notes
// -----
//   - Submit never panics and never returns an error; every path ends in a
//     well-formed Outcome.
//   - Concurrent probes share one in-flight Ping through singleflight.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/logger"
	"github.com/yanizio/neurion/internal/metrics"
	"github.com/yanizio/neurion/internal/store"
)

// Notifier receives persisted records after a successful insert.  It must
// not block; delivery failures are the notifier's concern.
type Notifier interface {
	Notify(rec store.Record)
}

// Client submits snapshots to a store.Store.  Safe for concurrent use.
type Client struct {
	store  store.Store
	notify Notifier
	log    *zap.SugaredLogger
	probe  singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithNotifier attaches a post-success notifier.
func WithNotifier(n Notifier) Option { return func(c *Client) { c.notify = n } }

// WithLogger overrides the fallback logger used when the request context
// carries none.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.log = l } }

// New returns a Client bound to st.
func New(st store.Store, opts ...Option) *Client {
	c := &Client{store: st}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProbeTimeout bounds one shared connectivity probe.
const ProbeTimeout = 10 * time.Second

// CheckConnectivity reports whether the store answers a lightweight probe.
// Failures are logged and counted, never returned.
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	log := c.logger(ctx)

	// The shared probe outlives any single caller's cancellation.
	ch := c.probe.DoChan("ping", func() (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("ping panic: %v", r)
			}
		}()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ProbeTimeout)
		defer cancel()
		return nil, c.store.Ping(pctx)
	})

	var err error
	select {
	case res := <-ch:
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		log.Warnw("connectivity probe failed", "err", err)
		metrics.ProbeFailuresTotal.Inc()
		return false
	}
	return true
}

// Submit performs exactly one insert for s.
func (c *Client) Submit(ctx context.Context, s form.Snapshot) (out Outcome) {
	log := c.logger(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("submit panic", "panic", r)
			out = Outcome{Kind: KindError, Message: MsgUnexpected, Err: fmt.Sprint(r)}
		}
		metrics.SubmitDuration.Observe(time.Since(start).Seconds())
		metrics.SubmissionsTotal.WithLabelValues(string(out.Kind)).Inc()
	}()

	// The insert is never cut short by the caller.
	rec, err := c.store.Insert(context.WithoutCancel(ctx), NewRecord(s))
	if err == nil && rec == nil {
		err = errors.New("store returned no record")
	}
	if err != nil {
		out = fromError(err)
		log.Warnw("contact submit failed",
			"kind", out.Kind,
			"code", store.CodeOf(err),
			"err", err)
		return out
	}

	log.Infow("contact submitted", "id", rec.ID)
	if c.notify != nil {
		c.notify.Notify(*rec)
	}
	return Outcome{Success: true, Kind: KindSuccess, Message: MsgSuccess, Record: rec}
}

// NewRecord converts a snapshot into the store's write shape.
func NewRecord(s form.Snapshot) store.NewRecord {
	trim := strings.TrimSpace
	return store.NewRecord{
		FirstName:       trim(s.FirstName),
		LastName:        trim(s.LastName),
		Email:           strings.ToLower(trim(s.Email)),
		Phone:           store.Optional(trim(s.Phone)),
		CompanyName:     trim(s.CompanyName),
		ServiceInterest: store.Optional(trim(s.ServiceInterest)),
		Budget:          store.Optional(trim(s.Budget)),
		ProjectDetails:  trim(s.ProjectDetails),
	}
}

func (c *Client) logger(ctx context.Context) *zap.SugaredLogger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	if c.log != nil {
		return c.log
	}
	return zap.S()
}
