// internal/session/controller.go
//
// Form session controller.
//
// Context
// -------
// One Controller owns one visitor's form: the current snapshot, the field
// errors from the last validation, and the submit banner.  It is the only
// surface the presentation layer talks to.
//
// States
// ------
//
//	Idle ──edit──▶ Editing ──submit──▶ Submitting ──▶ Result(success|error)
//	  ▲                                                   │
//	  └────────── reset, or success banner timeout ───────┘
//
//   - Edit sanitizes, merges, clears that field's error and any banner.
//   - Submit validates first; invalid snapshots never reach the network.
//     A failed connectivity probe aborts before the insert.
//   - Success empties the snapshot and schedules the banner clear.
//   - Every failure keeps the snapshot so nothing typed is lost.
//
// Notes
// -----
//   - Submitting is the re-entry guard: Edit, Submit, and Reset return
//     ErrBusy until the in-flight attempt resolves.
//   - The banner timer carries a generation number; a stale fire is a no-op.
//   - The mutex is never held across the network round trip.
//   - Caller cancellation never aborts an issued attempt; the probe carries
//     its own bound and the insert has none.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/submission"
)

// DefaultSuccessDelay is how long the success banner stays up.
const DefaultSuccessDelay = 5 * time.Second

var (
	// ErrBusy is returned while a submit is in flight.
	ErrBusy = errors.New("session: submission in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: closed")
)

// Submitter is the part of submission.Client the controller needs.
type Submitter interface {
	CheckConnectivity(ctx context.Context) bool
	Submit(ctx context.Context, s form.Snapshot) submission.Outcome
}

// -----------------------------------------------------------------------------
// State and status
// -----------------------------------------------------------------------------

// State is the controller's position in the form life-cycle.
type State int

const (
	Idle State = iota
	Editing
	Submitting
	Result
)

var stateNames = [...]string{"idle", "editing", "submitting", "result"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StatusType is the banner kind.
type StatusType string

const (
	StatusNone    StatusType = "none"
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

// Status is the banner shown above the form.
type Status struct {
	Type    StatusType `json:"type"`
	Message string     `json:"message"`
}

var noStatus = Status{Type: StatusNone}

// View is an immutable copy of everything the UI renders.
type View struct {
	State      State         `json:"state"`
	Snapshot   form.Snapshot `json:"snapshot"`
	Errors     form.Errors   `json:"errors"`
	Submitting bool          `json:"submitting"`
	Status     Status        `json:"status"`
}

// -----------------------------------------------------------------------------
// Controller
// -----------------------------------------------------------------------------

// Controller drives one form session.  Safe for concurrent use.
type Controller struct {
	sub   Submitter
	delay time.Duration

	mu     sync.Mutex
	state  State
	snap   form.Snapshot
	errs   form.Errors
	status Status
	timer  *time.Timer
	gen    uint64
	subs   map[chan View]struct{}
	closed bool
}

// Options customise a Controller.
type Options struct {
	SuccessDelay time.Duration // 0 → DefaultSuccessDelay
}

// NewController returns an Idle controller with an empty snapshot.
func NewController(sub Submitter, opts Options) *Controller {
	delay := opts.SuccessDelay
	if delay <= 0 {
		delay = DefaultSuccessDelay
	}
	return &Controller{
		sub:    sub,
		delay:  delay,
		snap:   form.Empty(),
		errs:   form.Errors{},
		status: noStatus,
		subs:   make(map[chan View]struct{}),
	}
}

// Edit stores raw (sanitized) into field.
func (c *Controller) Edit(field form.Field, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.state == Submitting:
		return ErrBusy
	}
	if err := c.snap.Set(field, raw); err != nil {
		return err
	}
	delete(c.errs, field)
	c.clearBannerLocked()
	c.state = Editing
	c.publishLocked()
	return nil
}

// Submit validates the snapshot and, when valid, probes connectivity and
// inserts it.  The returned Outcome is also reflected in Status.
func (c *Controller) Submit(ctx context.Context) (submission.Outcome, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return submission.Outcome{}, ErrClosed
	case c.state == Submitting:
		c.mu.Unlock()
		return submission.Outcome{}, ErrBusy
	}

	c.clearBannerLocked()
	snap := c.snap
	if errs := form.Validate(snap); len(errs) > 0 {
		c.errs = errs
		out := submission.Rejected(submission.KindInvalid)
		c.state = Result
		c.status = Status{Type: StatusError, Message: out.Message}
		c.publishLocked()
		c.mu.Unlock()
		return out, nil
	}
	c.errs = form.Errors{}
	c.state = Submitting
	c.publishLocked()
	c.mu.Unlock()

	// Once issued, an attempt runs to completion even if the caller goes
	// away; values such as the request logger still flow through.
	run := context.WithoutCancel(ctx)
	var out submission.Outcome
	if c.sub.CheckConnectivity(run) {
		out = c.sub.Submit(run, snap)
	} else {
		out = submission.Rejected(submission.KindOffline)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Result
	if out.Success {
		c.snap = form.Empty()
		c.errs = form.Errors{}
		c.status = Status{Type: StatusSuccess, Message: out.Message}
		c.armBannerLocked()
	} else {
		c.status = Status{Type: StatusError, Message: out.Message}
	}
	c.publishLocked()
	return out, nil
}

// Reset empties the snapshot, errors, and banner.  Idempotent.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.state == Submitting:
		return ErrBusy
	}
	c.snap = form.Empty()
	c.errs = form.Errors{}
	c.clearBannerLocked()
	c.state = Idle
	c.publishLocked()
	return nil
}

// Snapshot returns a copy of the current field values.
func (c *Controller) Snapshot() form.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Errors returns a copy of the current field errors.
func (c *Controller) Errors() form.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyErrors(c.errs)
}

// Submitting reports whether a submit is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Submitting
}

// Status returns the current banner.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns the current life-cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a consistent copy of everything above.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a channel that receives the latest View after every
// transition, plus a cancel func.  Slow readers only ever see the newest
// View.  The channel is closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	ch <- c.viewLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
}

// Close stops the banner timer and closes every subscriber.  Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

// -----------------------------------------------------------------------------
// Internals (mu held)
// -----------------------------------------------------------------------------

func (c *Controller) armBannerLocked() {
	c.stopTimerLocked()
	if c.closed {
		return
	}
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.expireBanner(gen) })
}

func (c *Controller) expireBanner(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.status.Type != StatusSuccess {
		return
	}
	c.timer = nil
	c.status = noStatus
	c.state = Idle
	c.publishLocked()
}

// clearBannerLocked drops the banner and invalidates any pending timer.
func (c *Controller) clearBannerLocked() {
	c.stopTimerLocked()
	c.status = noStatus
}

func (c *Controller) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) viewLocked() View {
	return View{
		State:      c.state,
		Snapshot:   c.snap,
		Errors:     copyErrors(c.errs),
		Submitting: c.state == Submitting,
		Status:     c.status,
	}
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	v := c.viewLocked()
	for ch := range c.subs {
		select {
		case ch <- v:
		default:
			// Replace the unread view with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func copyErrors(in form.Errors) form.Errors {
	out := make(form.Errors, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
