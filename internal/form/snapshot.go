// internal/form/snapshot.go
//
// Contact form data model.
//
// Context
// -------
// A Snapshot holds the current value of every contact-form field for one
// submission attempt.  Values enter through Set, which always runs Sanitize,
// so a Snapshot never carries raw markup or surrounding whitespace.
//
// Field names double as wire names: the JSON API, the persisted row, and the
// validation error map all use the same snake_case keys.
//
// Notes
// -----
//   - Phone, ServiceInterest, and Budget are optional and may be empty.
//   - The zero value is the empty snapshot; Empty() exists for readability.
package form

import (
	"errors"
	"fmt"
)

// Field names one contact-form input.
type Field string

const (
	FieldFirstName       Field = "first_name"
	FieldLastName        Field = "last_name"
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldCompanyName     Field = "company_name"
	FieldServiceInterest Field = "service_interest"
	FieldBudget          Field = "budget"
	FieldProjectDetails  Field = "project_details"
)

// Fields lists every field in form order.
var Fields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldCompanyName,
	FieldServiceInterest,
	FieldBudget,
	FieldProjectDetails,
}

// ErrUnknownField is returned when a caller names a field the form lacks.
var ErrUnknownField = errors.New("unknown form field")

// ParseField converts a wire name into a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Snapshot is the mutable state of one in-progress submission.
type Snapshot struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	CompanyName     string `json:"company_name"`
	ServiceInterest string `json:"service_interest"`
	Budget          string `json:"budget"`
	ProjectDetails  string `json:"project_details"`
}

// Empty returns the initial snapshot.
func Empty() Snapshot { return Snapshot{} }

// IsEmpty reports whether every field is blank.
func (s Snapshot) IsEmpty() bool { return s == Snapshot{} }

// Get returns the value stored for f.
func (s *Snapshot) Get(f Field) string {
	if p := s.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Set sanitizes raw and stores it under f.
func (s *Snapshot) Set(f Field, raw string) error {
	p := s.ptr(f)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	*p = Sanitize(raw)
	return nil
}

// Sanitized returns a copy with every field passed through Sanitize.  Used
// by the one-shot API path where values arrive in bulk rather than via Set.
func (s Snapshot) Sanitized() Snapshot {
	out := s
	for _, f := range Fields {
		p := out.ptr(f)
		*p = Sanitize(*p)
	}
	return out
}

func (s *Snapshot) ptr(f Field) *string {
	switch f {
	case FieldFirstName:
		return &s.FirstName
	case FieldLastName:
		return &s.LastName
	case FieldEmail:
		return &s.Email
	case FieldPhone:
		return &s.Phone
	case FieldCompanyName:
		return &s.CompanyName
	case FieldServiceInterest:
		return &s.ServiceInterest
	case FieldBudget:
		return &s.Budget
	case FieldProjectDetails:
		return &s.ProjectDetails
	}
	return nil
}

// Option is one advisory select value shown by the UI.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ServiceOptions are the known service_interest values.  Validation does not
// restrict the field to this list.
var ServiceOptions = []Option{
	{"lead-generation", "AI Lead Generation"},
	{"chatbots", "Intelligent Chatbots"},
	{"scheduling", "Smart Scheduling"},
	{"web-development", "AI Web Development"},
	{"consulting", "AI Strategy Consulting"},
	{"email-automation", "Email Automation"},
	{"social-media", "Social Media AI"},
	{"full-suite", "Complete AI Suite"},
}

// BudgetOptions are the known budget ranges.
var BudgetOptions = []Option{
	{"under-5k", "Under $5,000"},
	{"5k-15k", "$5,000 - $15,000"},
	{"15k-50k", "$15,000 - $50,000"},
	{"50k-plus", "$50,000+"},
}
