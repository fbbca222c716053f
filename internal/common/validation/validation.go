// Package validation wraps go-playground/validator with a single shared
// instance, used at the transport edge to check request payloads before
// they reach a service.
package validation

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Struct validates payload against its `validate` struct tags.
func Struct(payload interface{}) error {
	return validate.Struct(payload)
}
