package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestResolveObjectLocation(t *testing.T) {
	org := uuid.MustParse("6f1c1c38-1f6f-4f55-9a57-1c2f0f3d9b10")

	key, err := ResolveObjectLocation("exports/audit/", org, "2026-03-01.ndjson")
	require.NoError(t, err)
	require.Equal(t, "exports/audit/6f1c1c38-1f6f-4f55-9a57-1c2f0f3d9b10/2026-03-01.ndjson", key)

	key, err = ResolveObjectLocation("", org, "/daily/a.ndjson")
	require.NoError(t, err)
	require.Equal(t, "6f1c1c38-1f6f-4f55-9a57-1c2f0f3d9b10/daily/a.ndjson", key)
}

func TestResolveObjectLocation_validates(t *testing.T) {
	org := uuid.New()

	_, err := ResolveObjectLocation("p", uuid.Nil, "a.ndjson")
	require.Error(t, err)

	_, err = ResolveObjectLocation("p", org, "  ")
	require.Error(t, err)

	_, err = ResolveObjectLocation("p", org, "../other/a.ndjson")
	require.Error(t, err)

	_, err = ResolveObjectLocation("p", org, "a//b")
	require.Error(t, err)
}

func TestLocalWriterPublishesOnClose(t *testing.T) {
	dir := t.TempDir()
	w := NewLocalWriter(dir)

	obj, err := w.Create(context.Background(), "org/audit.ndjson")
	require.NoError(t, err)
	_, err = io.WriteString(obj, "{\"action\":\"quote.get\"}\n")
	require.NoError(t, err)

	target := filepath.Join(dir, "org", "audit.ndjson")
	_, err = os.Stat(target)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, obj.Close())
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "{\"action\":\"quote.get\"}\n", string(data))
	require.Equal(t, "file://"+target, w.URI("org/audit.ndjson"))
}

func TestLocalWriterDiscardsCancelledObject(t *testing.T) {
	dir := t.TempDir()
	w := NewLocalWriter(dir)

	ctx, cancel := context.WithCancel(context.Background())
	obj, err := w.Create(ctx, "org/audit.ndjson")
	require.NoError(t, err)
	_, err = io.WriteString(obj, "partial")
	require.NoError(t, err)

	cancel()
	require.Error(t, obj.Close())

	entries, err := os.ReadDir(filepath.Join(dir, "org"))
	require.NoError(t, err)
	require.Empty(t, entries)
}
