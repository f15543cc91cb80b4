package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

const maxBodyBytes = 1 << 20

// ParseID reads a UUID path parameter. The nil UUID is well-formed and is
// looked up like any other id.
func ParseID(r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil || len(raw) != 36 {
		return uuid.Nil, false
	}
	return id, true
}

// ParsePage binds limit and offset from the query string. Both are optional;
// present values must be single integers inside range.
func ParsePage(r *http.Request) (paging.Page, bool) {
	q := r.URL.Query()
	page := paging.Default()

	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &page.Limit); err != nil {
		return paging.Page{}, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &page.Offset); err != nil {
		return paging.Page{}, false
	}
	if page.Validate() != nil {
		return paging.Page{}, false
	}
	return page, true
}

// QueryString returns a trimmed optional query parameter. Repeated values are rejected.
func QueryString(r *http.Request, name string) (*string, bool) {
	values, present := r.URL.Query()[name]
	if !present {
		return nil, true
	}
	if len(values) != 1 {
		return nil, false
	}
	v := strings.TrimSpace(values[0])
	if v == "" {
		return nil, true
	}
	return &v, true
}

// QueryUUID parses an optional UUID query parameter.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, bool) {
	raw, ok := QueryString(r, name)
	if !ok {
		return nil, false
	}
	if raw == nil {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// DecodeJSON strictly decodes a single JSON object into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// TenantContext returns the bound tenant context or writes 401.
func TenantContext(w http.ResponseWriter, r *http.Request) (tenant.Context, bool) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, MsgUnauthorized)
		return tenant.Context{}, false
	}
	return tc, true
}

// OptionalTime is a nullable timestamp body field that tells an absent field
// apart from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// Patch returns nil for an absent field, otherwise a pointer to the
// submitted value, which is nil for an explicit null.
func (o OptionalTime) Patch() **time.Time {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}
