package contracts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc, err := OpenAPI(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/api/customers", "/api/customers/{id}",
		"/api/projects/{id}/status",
		"/api/quotes/{id}/payload",
		"/api/contracts/{id}/status",
		"/api/handovers/{id}/payload",
		"/api/audit-logs",
	} {
		require.NotNil(t, doc.Paths.Find(path), path)
	}
}

func TestPayloadSchemasCompile(t *testing.T) {
	v, err := persistence.NewPayloadValidator(PayloadSchemas())
	require.NoError(t, err)

	require.NoError(t, v.Validate(persistence.QuotePayloadSchema,
		json.RawMessage(`{"currency":"EUR","items":[{"description":"Tiles","quantity":12,"unit_price":4.5}]}`)))
	require.Error(t, v.Validate(persistence.QuotePayloadSchema, json.RawMessage(`{"items":[{"description":"Tiles"}]}`)))

	require.NoError(t, v.Validate(persistence.HandoverPayloadSchema,
		json.RawMessage(`{"checklist":[{"label":"Keys","done":true}],"keys_handed_over":2}`)))
	require.Error(t, v.Validate(persistence.HandoverPayloadSchema, json.RawMessage(`{"keys_handed_over":-1}`)))
}
