// Package httpapi holds the response envelope, request parsing and error
// classification shared by every resource handler.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// Stable error messages. Bodies never carry internal detail.
const (
	MsgUnauthorized   = "Unauthorized"
	MsgForbidden      = "Forbidden"
	MsgInvalidID      = "invalid id"
	MsgInvalidQuery   = "invalid query"
	MsgInvalidPayload = "invalid payload"
	MsgNotFound       = "Not found"
	MsgConflict       = "Conflict"
	MsgInternal       = "Internal server error"
)

// ErrorBody is the only error shape written by the API.
type ErrorBody struct {
	Error string `json:"error"`
}

// ValueBody wraps a single resource.
type ValueBody[T any] struct {
	Value T `json:"value"`
}

// ListBody wraps a page of resources. Count is the total number of matching
// rows inside the caller's organization.
type ListBody[T any] struct {
	Value []T `json:"value"`
	Count int `json:"count"`
}

// DeletedRef is the value returned by delete endpoints.
type DeletedRef struct {
	ID string `json:"id"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteValue writes {"value": v}.
func WriteValue[T any](w http.ResponseWriter, status int, v T) {
	WriteJSON(w, status, ValueBody[T]{Value: v})
}

// WriteList writes {"value": items, "count": count} with a non-null array.
func WriteList[T any](w http.ResponseWriter, items []T, count int) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, ListBody[T]{Value: items, Count: count})
}
