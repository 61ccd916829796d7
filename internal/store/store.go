// internal/store/store.go
//
// Persistence boundary for contact submissions.
//
// Context
// -------
// A submission is one insert-only write into the `contact_messages` table.
// Two backends satisfy Store:
//
//   - PostgREST – the hosted REST front of the database (default).
//   - SQL       – a direct sqlx connection (mysql, pgx, or sqlite).
//
// Both report service-level failures as *Error carrying a Postgres-style
// SQLSTATE code, so callers map outcomes without knowing the backend.
// Transport failures (DNS, TLS, refused connections) are returned as plain
// wrapped errors.
//
// Notes
// -----
//   - Optional columns travel as *string; nil means SQL NULL, never "".
//   - The store owns ID and CreatedAt.  Callers never cache a Record.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTable is the table contact submissions land in.
const DefaultTable = "contact_messages"

// SQLSTATE codes the submission client distinguishes.
const (
	CodeUniqueViolation  = "23505"
	CodePermissionDenied = "42501"
)

// NewRecord is the write shape of one submission.
type NewRecord struct {
	FirstName       string  `json:"first_name" db:"first_name"`
	LastName        string  `json:"last_name" db:"last_name"`
	Email           string  `json:"email" db:"email"`
	Phone           *string `json:"phone" db:"phone"`
	CompanyName     string  `json:"company_name" db:"company_name"`
	ServiceInterest *string `json:"service_interest" db:"service_interest"`
	Budget          *string `json:"budget" db:"budget"`
	ProjectDetails  string  `json:"project_details" db:"project_details"`
}

// Record is one persisted row echoed back by the store.
type Record struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	NewRecord
}

// Store writes submissions.  Implementations must be safe for concurrent use.
type Store interface {
	// Ping checks that the table is reachable with the configured credentials.
	Ping(ctx context.Context) error
	// Insert writes rec and returns the stored row.
	Insert(ctx context.Context, rec NewRecord) (*Record, error)
}

// Error is a failure reported by the database service itself.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return "store: " + e.Message
	}
	return fmt.Sprintf("store: %s (code %s)", e.Message, e.Code)
}

// CodeOf returns the service code carried by err, or "".
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Optional converts an empty string into nil.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
