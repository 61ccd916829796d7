// internal/message/message.go
//
// Outbound notification queue.
//
// Context
//   After a contact submission lands, the team wants to hear about it: a
//   JSON webhook (Slack, Zapier, CRM) and an email through an HTTP mail
//   relay.  Both are best-effort.  Jobs go onto a bounded in-process queue
//   and one worker delivers them, so a slow relay never holds up the
//   visitor's response.  A full queue drops the job and counts it.
//
// Workflow
//   1. Notify(rec)        – builds one job per configured channel.
//   2. Enqueue*           – non-blocking push onto the queue.
//   3. worker             – POSTs each job with a per-job timeout.
//   4. Close(ctx)         – stops intake and drains what is queued.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/metrics"
	"github.com/yanizio/neurion/internal/store"
)

// Channel labels used in logs and metrics.
const (
	ChannelWebhook = "webhook"
	ChannelEmail   = "email"
)

// DefaultJobTimeout bounds a single delivery attempt.
const DefaultJobTimeout = 10 * time.Second

var (
	// ErrQueueFull is returned when the queue cannot take another job.
	ErrQueueFull = errors.New("message: queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("message: dispatcher closed")
)

// Email is one outbound email job, delivered as JSON to the mail relay.
type Email struct {
	From    string   `json:"from,omitempty"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

// Webhook is one outbound JSON POST.
type Webhook struct {
	URL  string
	Body any
}

// Event is the webhook payload for a new submission.
type Event struct {
	Type   string       `json:"type"`
	Record store.Record `json:"record"`
}

// Options configure a Dispatcher.  Empty URLs disable that channel.
type Options struct {
	WebhookURL   string
	MailRelayURL string
	From         string
	To           []string
	QueueSize    int
	JobTimeout   time.Duration
	HTTP         *http.Client
	Logger       *zap.SugaredLogger
}

type job struct {
	channel string
	url     string
	body    any
}

// Dispatcher delivers notifications in the background.  Safe for
// concurrent use.
type Dispatcher struct {
	opts Options
	http *http.Client
	log  *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}

	d := &Dispatcher{
		opts:  opts,
		http:  hc,
		log:   log,
		queue: make(chan job, opts.QueueSize),
		done:  make(chan struct{}),
	}
	go d.worker()
	return d
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d.opts.WebhookURL != "" || d.opts.MailRelayURL != ""
}

// Notify queues the configured notifications for rec.  Failures are logged;
// the caller's outcome never depends on them.
func (d *Dispatcher) Notify(rec store.Record) {
	if d.opts.WebhookURL != "" {
		err := d.EnqueueWebhook(Webhook{
			URL:  d.opts.WebhookURL,
			Body: Event{Type: "contact.submitted", Record: rec},
		})
		if err != nil {
			d.log.Warnw("webhook not queued", "id", rec.ID, "err", err)
		}
	}
	if d.opts.MailRelayURL != "" && len(d.opts.To) > 0 {
		mail, err := RenderEmail(rec)
		if err != nil {
			d.log.Errorw("render notification email", "id", rec.ID, "err", err)
			return
		}
		mail.From = d.opts.From
		mail.To = d.opts.To
		if err := d.EnqueueEmail(mail); err != nil {
			d.log.Warnw("email not queued", "id", rec.ID, "err", err)
		}
	}
}

// EnqueueEmail queues msg for the mail relay.
func (d *Dispatcher) EnqueueEmail(msg Email) error {
	if d.opts.MailRelayURL == "" {
		return fmt.Errorf("message: mail relay not configured")
	}
	return d.enqueue(job{channel: ChannelEmail, url: d.opts.MailRelayURL, body: msg})
}

// EnqueueWebhook queues a JSON POST of w.Body to w.URL.
func (d *Dispatcher) EnqueueWebhook(w Webhook) error {
	return d.enqueue(job{channel: ChannelWebhook, url: w.URL, body: w.Body})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- j:
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues(j.channel, "dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued jobs until ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------
// Delivery
// -----------------------------------------------------------------------------

func (d *Dispatcher) worker() {
	defer close(d.done)
	for j := range d.queue {
		err := d.deliver(j)
		result := "ok"
		if err != nil {
			result = "failed"
			d.log.Warnw("notification failed", "channel", j.channel, "err", err)
		}
		metrics.NotificationsTotal.WithLabelValues(j.channel, result).Inc()
	}
}

func (d *Dispatcher) deliver(j job) error {
	payload, err := json.Marshal(j.body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", j.channel, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.JobTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", j.channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", store.ClientInfo)

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", j.channel, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: status %d", j.channel, resp.StatusCode)
	}
	return nil
}
