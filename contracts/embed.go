// Package contracts embeds the HTTP contract and the payload schemas that
// quotes and handovers are validated against.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

//go:embed schemas/quote_payload.json
var quotePayloadSchema []byte

//go:embed schemas/handover_payload.json
var handoverPayloadSchema []byte

// Schema names, matching persistence.QuotePayloadSchema and
// persistence.HandoverPayloadSchema.
const (
	QuotePayload    = "quote-payload"
	HandoverPayload = "handover-payload"
)

// PayloadSchemas returns the payload JSON Schemas keyed by name. The caller
// owns the returned map.
func PayloadSchemas() map[string][]byte {
	return map[string][]byte{
		QuotePayload:    append([]byte(nil), quotePayloadSchema...),
		HandoverPayload: append([]byte(nil), handoverPayloadSchema...),
	}
}

// OpenAPI loads and validates the embedded API document.
func OpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}
