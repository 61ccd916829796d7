// internal/form/validate.go
//
// Contact form validation rules.
//
// Context
// -------
// Validate maps a complete Snapshot to per-field error messages.  Every rule
// is evaluated independently and every failing field is reported, so the UI
// can highlight all problems at once.  An empty Errors map means the
// snapshot may be submitted.
//
// The rules live as go-playground/validator tags on a private struct.  Two
// custom tags carry the contact-specific patterns:
//
//   - contact_email  – local@domain.tld, TLD of two or more letters.
//   - contact_phone  – optional leading "+", then at least ten digits, once
//     spaces, hyphens, and parentheses are stripped.
//
// Validator stops at the first failing tag of a field, so tag order defines
// which message wins (required, then format, then length).
//
// Notes
// -----
//   - Lengths count runes after trimming.
//   - Validate performs no I/O and is safe for concurrent use.
package form

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field to its user-facing message.  Empty means valid.
type Errors map[Field]string

// Has reports whether f carries an error.
func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// contactRules mirrors the validated subset of Snapshot.  The field tag is
// the wire name reported back in Errors.
type contactRules struct {
	FirstName      string `field:"first_name" validate:"required,min=2,max=50"`
	LastName       string `field:"last_name" validate:"required,min=2,max=50"`
	Email          string `field:"email" validate:"required,contact_email,max=255"`
	Phone          string `field:"phone" validate:"omitempty,contact_phone"`
	CompanyName    string `field:"company_name" validate:"required,min=2,max=100"`
	ProjectDetails string `field:"project_details" validate:"required,min=10,max=2000"`
}

var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		return sf.Tag.Get("field")
	})
	must(v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("contact_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(phoneNoise.Replace(fl.Field().String()))
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic("form: register validation: " + err.Error())
	}
}

// Validate returns every rule violation found in s.
func Validate(s Snapshot) Errors {
	in := contactRules{
		FirstName:      strings.TrimSpace(s.FirstName),
		LastName:       strings.TrimSpace(s.LastName),
		Email:          strings.TrimSpace(s.Email),
		Phone:          strings.TrimSpace(s.Phone),
		CompanyName:    strings.TrimSpace(s.CompanyName),
		ProjectDetails: strings.TrimSpace(s.ProjectDetails),
	}

	out := Errors{}
	verrs, ok := rules.Struct(in).(validator.ValidationErrors)
	if !ok {
		return out // nil error, or a programming error we cannot attribute
	}
	for _, fe := range verrs {
		f := Field(fe.Field())
		out[f] = message(f, fe.Tag(), fe.Param())
	}
	return out
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

var labels = map[Field]string{
	FieldFirstName:      "First name",
	FieldLastName:       "Last name",
	FieldEmail:          "Email address",
	FieldPhone:          "Phone number",
	FieldCompanyName:    "Company name",
	FieldProjectDetails: "Project details",
}

func message(f Field, tag, param string) string {
	label := labels[f]
	switch tag {
	case "required":
		if f == FieldProjectDetails {
			return label + " are required"
		}
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		if f == FieldEmail {
			return "Email address is too long"
		}
		return fmt.Sprintf("%s must be less than %s characters", label, param)
	case "contact_email":
		return "Please enter a valid email address"
	case "contact_phone":
		return "Please enter a valid phone number"
	default:
		return label + " is invalid"
	}
}
