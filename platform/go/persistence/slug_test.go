package persistence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
		err   string
	}{
		{input: "acme-roofing", want: "acme-roofing"},
		{input: "  Northside-Plumbing ", want: "northside-plumbing"},
		{input: "crew42", want: "crew42"},
		{input: strings.Repeat("a", MaxSlugLength), want: strings.Repeat("a", MaxSlugLength)},
		{input: "   ", err: "required"},
		{input: strings.Repeat("a", MaxSlugLength+1), err: "at most"},
		{input: "acme_roofing", err: "invalid slug"},
		{input: "-acme", err: "invalid slug"},
		{input: "acme-", err: "invalid slug"},
		{input: "acme--roofing", err: "invalid slug"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			slug, err := NormalizeSlug(tt.input)
			if tt.err != "" {
				require.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, slug)
		})
	}
}
