package submission

import (
	"github.com/yanizio/neurion/internal/metrics"
	"github.com/yanizio/neurion/internal/store"
)

// User-facing messages.  Nothing else is ever shown to the visitor.
const (
	MsgSuccess    = "Thank you! Your message has been submitted successfully. We'll get back to you within 24 hours."
	MsgInvalid    = "Please correct the errors above and try again."
	MsgOffline    = "Unable to connect to the database. Please check your internet connection and try again."
	MsgDuplicate  = "A message with this email has already been submitted recently."
	MsgPermission = "We could not accept your message right now. Please try again later or reach us by email."
	MsgFailed     = "Failed to submit your message. Please try again later."
	MsgUnexpected = "An unexpected error occurred. Please try again later."
)

// Kind classifies an Outcome.  Values double as metric labels.
type Kind string

const (
	KindSuccess    Kind = metrics.OutcomeSuccess
	KindInvalid    Kind = metrics.OutcomeInvalid
	KindOffline    Kind = metrics.OutcomeOffline
	KindDuplicate  Kind = metrics.OutcomeDuplicate
	KindPermission Kind = metrics.OutcomePermission
	KindError      Kind = metrics.OutcomeError
)

// Outcome is the terminal result of one submission attempt.
//
// Message is safe to render.  Err is an operator diagnostic and must never
// reach the visitor.
type Outcome struct {
	Success bool          `json:"success"`
	Kind    Kind          `json:"kind"`
	Message string        `json:"message"`
	Err     string        `json:"-"`
	Record  *store.Record `json:"data,omitempty"`
}

// Rejected builds and counts an outcome for an attempt that never reached
// the store (KindInvalid or KindOffline).
func Rejected(k Kind) Outcome {
	msg := MsgUnexpected
	switch k {
	case KindInvalid:
		msg = MsgInvalid
	case KindOffline:
		msg = MsgOffline
	}
	metrics.SubmissionsTotal.WithLabelValues(string(k)).Inc()
	return Outcome{Kind: k, Message: msg}
}

// fromError maps a store failure to an outcome.  The raw error text goes to
// Err only.
func fromError(err error) Outcome {
	out := Outcome{Kind: KindError, Message: MsgFailed, Err: err.Error()}
	switch store.CodeOf(err) {
	case store.CodeUniqueViolation:
		out.Kind, out.Message = KindDuplicate, MsgDuplicate
	case store.CodePermissionDenied:
		out.Kind, out.Message = KindPermission, MsgPermission
	}
	return out
}
