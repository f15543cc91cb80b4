package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

var quotes = New("draft", map[string][]string{
	"draft":    {"sent"},
	"sent":     {"accepted", "rejected", "expired", "draft"},
	"accepted": nil,
	"rejected": nil,
	"expired":  {"draft"},
})

func TestMachine(t *testing.T) {
	require.Equal(t, "draft", quotes.Initial())
	require.Equal(t, []string{"accepted", "draft", "expired", "rejected", "sent"}, quotes.Statuses())

	require.True(t, quotes.Allows("draft", "sent"))
	require.True(t, quotes.Allows("accepted", "accepted"))
	require.False(t, quotes.Allows("draft", "accepted"))
	require.False(t, quotes.Allows("accepted", "draft"))
	require.False(t, quotes.Allows("void", "void"))

	_, err := quotes.ParseStatus("status", "void")
	require.True(t, apperr.IsValidation(err))

	err = quotes.Transition("rejected", "sent")
	require.ErrorIs(t, err, apperr.ErrConflict)
	msg, ok := apperr.PublicMessage(err)
	require.True(t, ok)
	require.Equal(t, "cannot change status from rejected to sent", msg)
}

func TestNewPanicsOnUndeclaredStatus(t *testing.T) {
	require.Panics(t, func() {
		New("draft", map[string][]string{"draft": {"sent"}})
	})
	require.Panics(t, func() {
		New("open", map[string][]string{"draft": nil})
	})
}
