package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/report"
)

const (
	// DefaultDir is where reports are written when no directory is configured.
	DefaultDir = ".drift-reports"
	// DefaultMaxIndexEntries bounds each service/environment index.
	DefaultMaxIndexEntries = 100
	// DefaultCacheSize bounds the decoded reports kept in memory.
	DefaultCacheSize = 16
)

// Options configure a FileStorage.
type Options struct {
	MaxIndexEntries int
	CacheSize       int
}

// FileStorage keeps one JSON file per run plus one index file per service
// and environment, newest run first.
type FileStorage struct {
	dir        string
	maxEntries int
	cache      *lru.Cache[string, *report.ReportV2]
	logger     *log.Logger

	mu sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage returns a storage rooted at dir. The directory is created
// on the first save.
func NewFileStorage(dir string, opts Options, logger *log.Logger) (*FileStorage, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	if opts.MaxIndexEntries <= 0 {
		opts.MaxIndexEntries = DefaultMaxIndexEntries
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}

	cache, err := lru.New[string, *report.ReportV2](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	return &FileStorage{
		dir:        dir,
		maxEntries: opts.MaxIndexEntries,
		cache:      cache,
		logger:     logger.With("storage_dir", dir),
	}, nil
}

// Dir returns the storage root.
func (s *FileStorage) Dir() string {
	return s.dir
}

func (s *FileStorage) reportPath(runID string) string {
	return filepath.Join(s.dir, safeName(runID)+".json")
}

func (s *FileStorage) indexPath(serviceName, environment string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-index.json", safeName(serviceName), safeName(environment)))
}

// safeName keeps caller-supplied names inside the storage directory.
func safeName(s string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(s)
}

// SaveReport writes the report file, then prepends it to the index.
func (s *FileStorage) SaveReport(ctx context.Context, r *report.ReportV2) error {
	if r == nil || r.Run.RunID == "" {
		return errors.New(errors.ErrCodeStorageWrite, "report has no run ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to create storage directory", err).
			WithSuggestion("Check permissions on " + s.dir)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to encode report", err)
	}
	if err := os.WriteFile(s.reportPath(r.Run.RunID), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to write report", err)
	}

	entries := s.readIndex(ctx, r.Run.ServiceName, r.Run.Environment)
	entries = slices.DeleteFunc(entries, func(e report.RunRef) bool {
		return e.RunID == r.Run.RunID
	})
	entries = append(entries, r.Ref())
	slices.SortStableFunc(entries, newestFirst)
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	index, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to encode index", err)
	}
	if err := os.WriteFile(s.indexPath(r.Run.ServiceName, r.Run.Environment), index, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to write index", err)
	}

	s.cache.Add(r.Run.RunID, r)
	s.logger.DebugContext(ctx, "report saved", log.KeyRunID, r.Run.RunID, "index_entries", len(entries))
	return nil
}

// LoadReport returns the stored report, or nil when it is missing or
// unreadable as a report.
func (s *FileStorage) LoadReport(ctx context.Context, runID string) (*report.ReportV2, error) {
	if r, ok := s.cache.Get(runID); ok {
		return r, nil
	}

	data, err := os.ReadFile(s.reportPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugContext(ctx, "report not found", log.KeyRunID, runID)
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeStorageRead, "failed to read report "+runID, err)
	}

	r, err := decodeReport(data)
	if err != nil {
		s.logger.WithError(err).WarnContext(ctx, "ignoring corrupt report", log.KeyRunID, runID)
		return nil, nil
	}

	s.cache.Add(runID, r)
	return r, nil
}

func decodeReport(data []byte) (*report.ReportV2, error) {
	var r report.ReportV2
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageCorrupt, "report is not valid JSON", err)
	}
	if r.Run.RunID == "" {
		return nil, errors.New(errors.ErrCodeStorageCorrupt, "report has no run ID")
	}
	if err := r.Report.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageCorrupt, "report holds an invalid finding", err)
	}
	return &r, nil
}

// PreviousRun returns the newest indexed run, or nil without history.
func (s *FileStorage) PreviousRun(ctx context.Context, serviceName, environment string) (*report.RunRef, error) {
	entries := s.readIndex(ctx, serviceName, environment)
	if len(entries) == 0 {
		return nil, nil
	}
	ref := entries[0]
	return &ref, nil
}

// ListRecentRuns returns up to limit indexed runs, newest first.
func (s *FileStorage) ListRecentRuns(ctx context.Context, serviceName, environment string, limit int) ([]report.RunRef, error) {
	entries := s.readIndex(ctx, serviceName, environment)
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// readIndex treats a missing or corrupt index as empty history.
func (s *FileStorage) readIndex(ctx context.Context, serviceName, environment string) []report.RunRef {
	path := s.indexPath(serviceName, environment)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "ignoring unreadable index", log.KeyPath, path, "error", err)
		}
		return nil
	}

	var entries []report.RunRef
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.WarnContext(ctx, "ignoring corrupt index", log.KeyPath, path, "error", err)
		return nil
	}

	entries = slices.DeleteFunc(entries, func(e report.RunRef) bool { return e.RunID == "" })
	slices.SortStableFunc(entries, newestFirst)
	return entries
}

func newestFirst(a, b report.RunRef) int {
	return b.ExecutedAt.Compare(a.ExecutedAt)
}
