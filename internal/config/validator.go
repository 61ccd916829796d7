// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` immediately after it unmarshals the merged
// Koanf tree into a `Config` instance.  Any tag mismatch or validation
// error aborts startup, ensuring the binary never runs with partial,
// malformed, or missing configuration.
//
// Custom rules
// ------------
//   - sql_ident – plain SQL identifier, because the table name is
//     interpolated into statements.
package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New()
	if err := vv.RegisterValidation("sql_ident", func(fl validator.FieldLevel) bool {
		return sqlIdent.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return vv
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
