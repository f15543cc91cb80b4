package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// Spool holds audit records whose insert failed after their operation
// committed, until the Replayer moves them into the ledger.
type Spool interface {
	Put(ctx context.Context, rec persistence.AuditRecord) error
	// Pending returns the spooled records, oldest first.
	Pending(ctx context.Context) ([]persistence.AuditRecord, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

const spoolExt = ".json"

// FileSpool stores one fsync'd JSON file per record in a directory.
type FileSpool struct {
	dir    string
	logger *zap.Logger
}

// NewFileSpool creates dir when missing.
func NewFileSpool(dir string, logger *zap.Logger) (*FileSpool, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("audit spool directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit spool dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSpool{dir: dir, logger: logger}, nil
}

func (s *FileSpool) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+spoolExt)
}

// Put writes rec to a temporary file, syncs it and renames it into place so a
// crash never leaves a partial record behind.
func (s *FileSpool) Put(_ context.Context, rec persistence.AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close spool file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(rec.ID)); err != nil {
		return fmt.Errorf("publish spool file: %w", err)
	}
	return syncDir(s.dir)
}

// Pending reads every spooled record. Unreadable files are renamed with a
// .corrupt suffix and skipped so one bad file cannot block the rest.
func (s *FileSpool) Pending(_ context.Context) ([]persistence.AuditRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	records := make([]persistence.AuditRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, spoolExt) {
			continue
		}

		full := filepath.Join(s.dir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read spool file %s: %w", name, err)
		}

		var rec persistence.AuditRecord
		if err := json.Unmarshal(data, &rec); err != nil || rec.ID == uuid.Nil {
			s.logger.Error("corrupt audit spool file", zap.String("file", name), zap.Error(err))
			_ = os.Rename(full, full+".corrupt")
			continue
		}
		records = append(records, rec)
	}

	sortOldestFirst(records)
	return records, nil
}

// Remove deletes a spooled record. Removing an absent record is not an error.
func (s *FileSpool) Remove(_ context.Context, id uuid.UUID) error {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove spool file: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open spool dir: %w", err)
	}
	defer d.Close() // nolint:errcheck
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync spool dir: %w", err)
	}
	return nil
}

func sortOldestFirst(records []persistence.AuditRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// MemorySpool keeps records in memory. Intended for tests.
type MemorySpool struct {
	mu      sync.Mutex
	records map[uuid.UUID]persistence.AuditRecord
	// PutErr, when set, makes Put fail.
	PutErr error
}

func NewMemorySpool() *MemorySpool {
	return &MemorySpool{records: make(map[uuid.UUID]persistence.AuditRecord)}
}

func (s *MemorySpool) Put(_ context.Context, rec persistence.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *MemorySpool) Pending(_ context.Context) ([]persistence.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.AuditRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *MemorySpool) Remove(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
