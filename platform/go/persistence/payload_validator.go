package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

// Payload schema names.
const (
	QuotePayloadSchema    = "quote-payload"
	HandoverPayloadSchema = "handover-payload"
)

// PayloadValidator validates payload documents against JSON Schemas compiled
// via santhosh-tekuri/jsonschema. Schemas are compiled once at construction;
// a *jsonschema.Schema is safe for concurrent use.
type PayloadValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewPayloadValidator compiles every schema document keyed by name.
func NewPayloadValidator(documents map[string][]byte) (*PayloadValidator, error) {
	if len(documents) == 0 {
		return nil, errors.New("at least one payload schema is required")
	}

	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := make(map[string]*jsonschema.Schema, len(documents))
	for _, name := range names {
		key := fmt.Sprintf("memory://schemas/%s.json", name)

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(key, bytes.NewReader(documents[name])); err != nil {
			return nil, fmt.Errorf("register schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(key)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		compiled[name] = schema
	}

	return &PayloadValidator{schemas: compiled}, nil
}

// Validate checks payload against the named schema. A payload that is not a
// JSON object or does not match the schema yields a validation error on the
// payload field.
func (v *PayloadValidator) Validate(name string, payload json.RawMessage) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown payload schema %q", name)
	}

	var document any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&document); err != nil {
		return apperr.Invalid("payload", "payload must be valid JSON")
	}
	if _, isObject := document.(map[string]any); !isObject {
		return apperr.Invalid("payload", "payload must be a JSON object")
	}

	if err := schema.Validate(document); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return apperr.Invalid("payload", ve.Error())
		}
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
