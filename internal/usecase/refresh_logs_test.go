package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshLogsUseCase_Refresh(t *testing.T) {
	testRecords := []domain.LogRecord{
		{ID: "old", BusinessName: "Acme", CreatedAt: "2024-01-01T00:00:00", LogType: domain.LogTypeNewEntity},
		{ID: "", BusinessName: "No Id", CreatedAt: "2024-01-03T00:00:00", LogType: domain.LogTypeNewEntity},
		{ID: "new", BusinessName: "Beta", CreatedAt: "2024-01-02T00:00:00", LogType: domain.LogTypeOrgGrowth},
	}

	t.Run("Successful Refresh", func(t *testing.T) {
		repo := &mocks.MockLogRepository{ListResult: testRecords}
		store := NewSnapshotStore()
		uc := NewRefreshLogsUseCase(repo, store, testLogger(), nil, 0, 3, time.Millisecond)

		snap, committed, err := uc.Refresh(context.Background())

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !committed {
			t.Fatal("expected snapshot to be committed")
		}
		if snap != store.Current() {
			t.Error("returned snapshot should be the current one")
		}
		if len(snap.Records) != 2 {
			t.Fatalf("expected 2 valid records, got %d", len(snap.Records))
		}
		if snap.Records[0].ID != "new" || snap.Records[1].ID != "old" {
			t.Errorf("expected newest first, got %s, %s", snap.Records[0].ID, snap.Records[1].ID)
		}
		if len(snap.Skipped) != 1 || snap.Skipped[0].Reason != "missing id" {
			t.Errorf("expected the record without id to be reported, got %+v", snap.Skipped)
		}
		if snap.Generation != 1 {
			t.Errorf("expected generation 1, got %d", snap.Generation)
		}
	})

	t.Run("Repository Failure with Retry", func(t *testing.T) {
		repo := &mocks.MockLogRepository{ListErr: errors.New("database is down")}
		store := NewSnapshotStore()
		uc := NewRefreshLogsUseCase(repo, store, testLogger(), nil, 0, 2, time.Millisecond)

		_, committed, err := uc.Refresh(context.Background())

		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		if committed {
			t.Error("nothing should be committed on failure")
		}
		if repo.ListCalls != 2 {
			t.Errorf("expected 2 attempts, got %d", repo.ListCalls)
		}
		if store.Current().Generation != 0 {
			t.Error("previous snapshot should be kept on failure")
		}
	})

	t.Run("Each Refresh Replaces The Batch", func(t *testing.T) {
		repo := &mocks.MockLogRepository{ListResult: testRecords}
		store := NewSnapshotStore()
		uc := NewRefreshLogsUseCase(repo, store, testLogger(), nil, 0, 1, time.Millisecond)

		if _, _, err := uc.Refresh(context.Background()); err != nil {
			t.Fatalf("first refresh: %v", err)
		}
		repo.ListResult = testRecords[:1]
		snap, _, err := uc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("second refresh: %v", err)
		}

		if len(snap.Records) != 1 || snap.Records[0].ID != "old" {
			t.Errorf("expected batch to be replaced, got %+v", snap.Records)
		}
		if len(snap.Skipped) != 0 {
			t.Errorf("skipped records should not carry over, got %+v", snap.Skipped)
		}
		if snap.Generation != 2 {
			t.Errorf("expected generation 2, got %d", snap.Generation)
		}
	})

	t.Run("Empty Batch", func(t *testing.T) {
		repo := &mocks.MockLogRepository{}
		uc := NewRefreshLogsUseCase(repo, NewSnapshotStore(), testLogger(), nil, 0, 1, time.Millisecond)

		snap, committed, err := uc.Refresh(context.Background())

		if err != nil || !committed {
			t.Fatalf("expected committed empty snapshot, got committed=%v err=%v", committed, err)
		}
		if len(snap.Records) != 0 {
			t.Errorf("expected no records, got %d", len(snap.Records))
		}
	})
}

// blockingRepository lets a test hold a ListLogs call open.
type blockingRepository struct {
	mocks.MockLogRepository
	release chan struct{}
	started chan struct{}
}

func (b *blockingRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogRecord, error) {
	close(b.started)
	<-b.release
	return b.MockLogRepository.ListLogs(ctx, limit)
}

func TestRefreshLogsUseCase_StaleResultIsDiscarded(t *testing.T) {
	store := NewSnapshotStore()

	slow := &blockingRepository{
		MockLogRepository: mocks.MockLogRepository{ListResult: []domain.LogRecord{
			{ID: "stale", BusinessName: "Old", CreatedAt: "2024-01-01", LogType: domain.LogTypeNewEntity},
		}},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	fast := &mocks.MockLogRepository{ListResult: []domain.LogRecord{
		{ID: "fresh", BusinessName: "New", CreatedAt: "2024-01-02", LogType: domain.LogTypeNewEntity},
	}}

	slowUC := NewRefreshLogsUseCase(slow, store, testLogger(), nil, 0, 1, time.Millisecond)
	fastUC := NewRefreshLogsUseCase(fast, store, testLogger(), nil, 0, 1, time.Millisecond)

	type result struct {
		committed bool
		err       error
	}
	done := make(chan result, 1)
	go func() {
		_, committed, err := slowUC.Refresh(context.Background())
		done <- result{committed, err}
	}()
	<-slow.started

	if _, committed, err := fastUC.Refresh(context.Background()); err != nil || !committed {
		t.Fatalf("fast refresh should commit, got committed=%v err=%v", committed, err)
	}
	close(slow.release)
	res := <-done

	if res.err != nil {
		t.Fatalf("slow refresh returned error: %v", res.err)
	}
	if res.committed {
		t.Error("slow refresh started first and must be discarded")
	}
	if got := store.Current().Records[0].ID; got != "fresh" {
		t.Errorf("expected the newer fetch to stay current, got %s", got)
	}
}

func TestRefreshLogsUseCase_RunStopsOnCancel(t *testing.T) {
	repo := &mocks.MockLogRepository{}
	store := NewSnapshotStore()
	uc := NewRefreshLogsUseCase(repo, store, testLogger(), nil, 0, 1, time.Millisecond)

	committed := make(chan struct{}, 1)
	store.OnCommit(func(*Snapshot) {
		select {
		case committed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		uc.Run(ctx, time.Hour)
		close(finished)
	}()

	select {
	case <-committed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not run immediately")
	}
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
