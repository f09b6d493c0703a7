package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
)

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	path       string
	quarantine bool
	now        func() time.Time
}

type FileOption func(*FileStore)

// WithQuarantine controls whether a corrupt file is renamed aside on load.
func WithQuarantine(enabled bool) FileOption {
	return func(s *FileStore) { s.quarantine = enabled }
}

// WithClock overrides the clock used to name quarantined files.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, quarantine: true, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing, unreadable or malformed file yields the
// default document. Malformed files are moved aside first so the next save
// cannot overwrite them.
func (s *FileStore) Load(ctx context.Context) core.Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.InfoContext(ctx, "Ledger file not found, using defaults", "path", s.path)
		} else {
			slog.WarnContext(ctx, "Ledger file unreadable, using defaults", "path", s.path, "error", err)
		}
		return core.DefaultDocument()
	}

	doc, err := Decode(data)
	if err != nil {
		slog.WarnContext(ctx, "Ledger file malformed, using defaults", "path", s.path, "error", err)
		if s.quarantine {
			if dst, qerr := s.quarantineFile(); qerr != nil {
				slog.ErrorContext(ctx, "Failed to quarantine ledger file", "path", s.path, "error", qerr)
			} else {
				slog.WarnContext(ctx, "Quarantined malformed ledger file", "path", s.path, "moved_to", dst)
			}
		}
		return core.DefaultDocument()
	}

	slog.DebugContext(ctx, "Ledger file loaded", "path", s.path, "groups", len(doc))
	return doc
}

// Save overwrites the file with the full document. The write goes through a
// temp file in the same directory followed by a rename.
func (s *FileStore) Save(ctx context.Context, doc core.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace ledger file: %w", err)
	}

	slog.DebugContext(ctx, "Ledger file saved", "path", s.path, "bytes", len(data))
	return nil
}

func (s *FileStore) quarantineFile() (string, error) {
	dst := s.path + ".corrupt-" + s.now().Format("20060102150405")
	if err := os.Rename(s.path, dst); err != nil {
		return "", err
	}
	return dst, nil
}
