package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
)

// ValidateAuthenticationViaSwagger satisfies operations that declare bearerAuth.
// The credential itself has already been verified by auth.Authenticate; this
// only checks that the header the contract requires is present.
func ValidateAuthenticationViaSwagger(_ context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fmt.Errorf("missing or invalid Authorization header")
	}
	return nil
}

// RequestBodyValidator validates request bodies against the OpenAPI document.
// Path and query parameters are parsed by the handlers so their error
// messages stay specific ("invalid id", "invalid query").
func RequestBodyValidator(doc *openapi3.T) func(http.Handler) http.Handler {
	return oapimiddleware.OapiRequestValidatorWithOptions(doc, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc:        ValidateAuthenticationViaSwagger,
			ExcludeRequestQueryParams: true,
		},
		ErrorHandler:          writeValidationError,
		SilenceServersWarning: true,
	})
}

func writeValidationError(w http.ResponseWriter, _ string, statusCode int) {
	switch statusCode {
	case http.StatusBadRequest:
		httpapi.WriteError(w, statusCode, httpapi.MsgInvalidPayload)
	case http.StatusUnauthorized:
		httpapi.WriteError(w, statusCode, httpapi.MsgUnauthorized)
	case http.StatusForbidden:
		httpapi.WriteError(w, statusCode, httpapi.MsgForbidden)
	case http.StatusNotFound:
		httpapi.WriteError(w, statusCode, httpapi.MsgNotFound)
	default:
		httpapi.WriteError(w, statusCode, http.StatusText(statusCode))
	}
}
