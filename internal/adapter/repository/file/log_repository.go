package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/domain"
)

const (
	segmentPrefix = "segment-"
	segmentSuffix = ".jsonl"
	filePerm      = 0644
	maxLineSize   = 4 << 20
)

// LogRepository is an append-only, file-backed log store for local use.
// Records are written as JSON lines into size-bounded segment files; segment
// and line order is creation order.
type LogRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger
	metrics        *metrics.Metrics

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	totalSize      int64
	ids            map[string]struct{}
}

// NewLogRepository opens (or creates) a store in dir. m may be nil.
func NewLogRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger, m *metrics.Metrics) (*LogRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	r := &LogRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "file_log_repository"),
		metrics:        m,
		ids:            make(map[string]struct{}),
	}

	err := r.scan(context.Background(), func(rec domain.LogRecord) {
		if rec.ID != "" {
			r.ids[rec.ID] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	total, err := r.calculateTotalSize()
	if err != nil {
		return nil, err
	}
	r.totalSize = total
	r.reportSize()

	if err := r.openLatestSegment(); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateLog appends rec to the current segment, assigning a UUID when it has
// no id. Ids already present yield domain.ErrDuplicate.
func (r *LogRepository) CreateLog(ctx context.Context, rec domain.LogRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal log: %w", err)
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[rec.ID]; exists {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicate, rec.ID)
	}
	if r.totalSize+int64(len(data)) > r.maxTotalSize {
		return "", fmt.Errorf("%w: %d bytes of %d used", domain.ErrStoreFull, r.totalSize, r.maxTotalSize)
	}
	if r.currentSegment == nil {
		if err := r.rotate(); err != nil {
			return "", err
		}
	}

	n, err := r.currentSegment.Write(data)
	r.currentSize += int64(n)
	r.totalSize += int64(n)
	r.reportSize()
	if err != nil {
		return "", fmt.Errorf("failed to write to segment: %w", err)
	}
	r.ids[rec.ID] = struct{}{}

	if r.currentSize >= r.maxSegmentSize {
		if err := r.rotate(); err != nil {
			r.logger.Error("Failed to rotate segment", "error", err)
		}
	}
	return rec.ID, nil
}

// ListLogs returns records newest first, up to limit (<= 0 means all).
func (r *LogRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogRecord, error) {
	var records []domain.LogRecord
	err := r.scan(ctx, func(rec domain.LogRecord) {
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// LatestByURL returns the last record appended for url.
func (r *LogRepository) LatestByURL(ctx context.Context, url string) (domain.LogRecord, error) {
	var (
		latest domain.LogRecord
		found  bool
	)
	err := r.scan(ctx, func(rec domain.LogRecord) {
		if rec.BusinessURL == url {
			latest, found = rec, true
		}
	})
	if err != nil {
		return domain.LogRecord{}, err
	}
	if !found {
		return domain.LogRecord{}, domain.ErrNotFound
	}
	return latest, nil
}

// scan decodes every stored line in creation order. A line that is not a
// valid record is passed on carrying only whatever id could be recovered, so
// that validation reports it.
func (r *LogRepository) scan(ctx context.Context, fn func(domain.LogRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	segments, err := r.getSortedSegments()
	if err != nil {
		return err
	}

	for _, segmentPath := range segments {
		if err := r.scanSegment(ctx, segmentPath, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *LogRepository) scanSegment(ctx context.Context, segmentPath string, fn func(domain.LogRecord)) error {
	file, err := os.Open(segmentPath)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", segmentPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.LogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			var partial struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(line, &partial)
			r.logger.Warn("Failed to decode stored log", "error", err, "log_id", partial.ID, "segment", filepath.Base(segmentPath))
			rec = domain.UndecodableLog(partial.ID, err)
		}
		fn(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning segment %s: %w", segmentPath, err)
	}
	return nil
}

func (r *LogRepository) rotate() error {
	if r.currentSegment != nil {
		if err := r.currentSegment.Sync(); err != nil {
			r.logger.Error("Failed to sync segment before rotating", "error", err)
		}
		if err := r.currentSegment.Close(); err != nil {
			r.logger.Error("Failed to close segment before rotating", "error", err)
		}
		r.currentSegment = nil
	}

	segmentName := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(r.dir, segmentName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create segment %s: %w", path, err)
	}

	r.currentSegment = f
	r.currentSize = 0
	r.logger.Info("Rotated to new segment", "path", path)
	return nil
}

func (r *LogRepository) openLatestSegment() error {
	segments, err := r.getSortedSegments()
	if err != nil {
		return err
	}

	if len(segments) == 0 {
		return r.rotate()
	}

	latestSegmentPath := segments[len(segments)-1]
	stat, err := os.Stat(latestSegmentPath)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latestSegmentPath, err)
	}

	f, err := os.OpenFile(latestSegmentPath, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latestSegmentPath, err)
	}

	r.currentSegment = f
	r.currentSize = stat.Size()
	r.logger.Info("Opened existing segment", "path", latestSegmentPath, "size", r.currentSize)

	if r.currentSize >= r.maxSegmentSize {
		return r.rotate()
	}
	return nil
}

func (r *LogRepository) getSortedSegments() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if isSegment(entry) {
			segments = append(segments, filepath.Join(r.dir, entry.Name()))
		}
	}
	slices.Sort(segments)
	return segments, nil
}

func (r *LogRepository) calculateTotalSize() (int64, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}
	var totalSize int64
	for _, entry := range entries {
		if !isSegment(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		totalSize += info.Size()
	}
	return totalSize, nil
}

func (r *LogRepository) reportSize() {
	if r.metrics != nil {
		r.metrics.FileStoreActiveBytes.Set(float64(r.totalSize))
	}
}

func isSegment(entry os.DirEntry) bool {
	name := entry.Name()
	return !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix)
}

// Close closes the current segment.
func (r *LogRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentSegment == nil {
		return nil
	}
	err := r.currentSegment.Close()
	r.currentSegment = nil
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
