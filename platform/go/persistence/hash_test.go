package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadHashIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a, err := PayloadHash([]byte(`{"b": 1, "a": {"y": [1, 2], "x": "v"}}`))
	require.NoError(t, err)
	b, err := PayloadHash([]byte(`{"a":{"x":"v","y":[1,2]},"b":1}`))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := PayloadHash([]byte(`{"a":{"x":"v","y":[2,1]},"b":1}`))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestPayloadHashRejectsEmptyAndInvalid(t *testing.T) {
	_, err := PayloadHash(nil)
	require.Error(t, err)
	_, err = PayloadHash([]byte(`{"a":`))
	require.Error(t, err)
}

func TestPayloadChangedKeys(t *testing.T) {
	keys, err := PayloadChangedKeys(
		[]byte(`{"items":[{"sku":"a"}],"currency":"EUR","note":"x"}`),
		[]byte(`{"currency":"EUR","items":[{"sku":"b"}],"discount":5}`),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"discount", "items", "note"}, keys)

	keys, err = PayloadChangedKeys([]byte(`{"a":{"x":1,"y":2}}`), []byte(`{"a":{"y":2,"x":1}}`))
	require.NoError(t, err)
	require.Empty(t, keys)

	keys, err = PayloadChangedKeys(nil, []byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, keys)
}
