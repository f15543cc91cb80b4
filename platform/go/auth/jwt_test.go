package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		found  bool
	}{
		{"standard", "Bearer abc.def", "abc.def", true},
		{"lowercase scheme", "bearer abc.def", "abc.def", true},
		{"padded", "Bearer   abc.def  ", "abc.def", true},
		{"empty token", "Bearer   ", "", false},
		{"basic", "Basic dXNlcjpwYXNz", "", false},
		{"missing", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, found := ExtractBearerToken(r)
			if got != tt.want || found != tt.found {
				t.Errorf("ExtractBearerToken() = (%q, %v), want (%q, %v)", got, found, tt.want, tt.found)
			}
		})
	}
}
