package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

// MockLogRepository is a mock implementation of domain.LogRepository for testing.
type MockLogRepository struct {
	mu         sync.Mutex
	ListResult []domain.LogRecord
	Latest     map[string]domain.LogRecord
	Created    []domain.LogRecord
	ListCalls  int
	NextID     string
	ListErr    error
	LatestErr  error
	CreateErr  error
}

func (m *MockLogRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := append([]domain.LogRecord(nil), m.ListResult...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockLogRepository) LatestByURL(ctx context.Context, url string) (domain.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LatestErr != nil {
		return domain.LogRecord{}, m.LatestErr
	}
	rec, ok := m.Latest[url]
	if !ok {
		return domain.LogRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *MockLogRepository) CreateLog(ctx context.Context, rec domain.LogRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if rec.ID == "" {
		rec.ID = m.NextID
	}
	m.Created = append(m.Created, rec)
	return rec.ID, nil
}

// MockSummarizer is a mock implementation of domain.Summarizer.
type MockSummarizer struct {
	mu     sync.Mutex
	Result domain.EntitySummary
	Err    error
	Calls  []string
}

func (m *MockSummarizer) Summarize(ctx context.Context, url string) (domain.EntitySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, url)
	if m.Err != nil {
		return domain.EntitySummary{}, m.Err
	}
	return m.Result, nil
}

// MockLogPublisher is a mock implementation of domain.LogPublisher.
type MockLogPublisher struct {
	mu        sync.Mutex
	Published []domain.LogRecord
	Err       error
}

func (m *MockLogPublisher) PublishLogCreated(ctx context.Context, rec domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, rec)
	return nil
}
