// Package validate holds the field checks shared by resource services.
// Checks record problems on an apperr.FieldErrors and return the normalized value.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

// Text trims value and checks presence and length in runes.
func Text(fe apperr.FieldErrors, field, value string, required bool, max int) string {
	v := strings.TrimSpace(value)
	if required && v == "" {
		fe.Add(field, field+" is required")
		return v
	}
	if max > 0 && utf8.RuneCountInString(v) > max {
		fe.Add(field, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return v
}

// OptionalText applies Text to a patch field. nil stays nil.
func OptionalText(fe apperr.FieldErrors, field string, value *string, required bool, max int) *string {
	if value == nil {
		return nil
	}
	v := Text(fe, field, *value, required, max)
	return &v
}

// Email lowercases value and checks it is an address. Empty is accepted.
func Email(fe apperr.FieldErrors, field, value string) string {
	v := strings.ToLower(Text(fe, field, value, false, 320))
	if v == "" {
		return v
	}
	if isEmail, ok := jsonschema.Formats["email"]; ok && !isEmail(v) {
		fe.Add(field, field+" must be a valid email address")
	}
	return v
}

// OptionalEmail applies Email to a patch field.
func OptionalEmail(fe apperr.FieldErrors, field string, value *string) *string {
	if value == nil {
		return nil
	}
	v := Email(fe, field, *value)
	return &v
}

// AtLeastOne records an error on "body" when no field of a patch was sent.
func AtLeastOne(fe apperr.FieldErrors, present ...bool) {
	for _, p := range present {
		if p {
			return
		}
	}
	fe.Add("body", "at least one field must be provided")
}
