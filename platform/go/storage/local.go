package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalWriter stores objects as files below Dir. Objects are written to a
// temporary file and renamed into place on Close.
type LocalWriter struct {
	Dir string
}

func NewLocalWriter(dir string) *LocalWriter {
	if dir == "" {
		panic("local writer requires dir")
	}
	return &LocalWriter{Dir: dir}
}

func (l *LocalWriter) URI(key string) string {
	return "file://" + filepath.Join(l.Dir, filepath.FromSlash(key))
}

func (l *LocalWriter) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	target := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}
	return &localObject{ctx: ctx, file: tmp, target: target}, nil
}

type localObject struct {
	ctx    context.Context
	file   *os.File
	target string
}

func (o *localObject) Write(p []byte) (int, error) {
	return o.file.Write(p)
}

func (o *localObject) Close() error {
	closeErr := o.file.Close()
	if err := o.ctx.Err(); err != nil {
		_ = os.Remove(o.file.Name())
		return fmt.Errorf("object discarded: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(o.file.Name())
		return closeErr
	}
	if err := os.Rename(o.file.Name(), o.target); err != nil {
		_ = os.Remove(o.file.Name())
		return fmt.Errorf("publish object: %w", err)
	}
	return nil
}
