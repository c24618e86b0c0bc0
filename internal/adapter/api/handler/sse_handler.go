package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/V4T54L/kyb-watch/internal/usecase"
)

const subscriberBuffer = 8

// SSEMessage announces a newly committed snapshot.
type SSEMessage struct {
	Generation uint64 `json:"generation"`
	Count      int    `json:"count"`
	Skipped    int    `json:"skipped"`
}

// SSEBroker streams snapshot commit notices to dashboards on GET /events.
// A new subscriber first receives the latest notice, so it never waits a full
// refresh interval to learn the current generation. Subscribers that fall
// behind lose intermediate generations, never the stream.
type SSEBroker struct {
	logger  *slog.Logger
	commits chan SSEMessage

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	latest      []byte
	closed      bool
}

// NewSSEBroker starts the fan-out loop. Every stream ends when ctx is done.
func NewSSEBroker(ctx context.Context, logger *slog.Logger) *SSEBroker {
	b := &SSEBroker{
		logger:      logger.With("component", "sse_broker"),
		commits:     make(chan SSEMessage, 64),
		subscribers: make(map[chan []byte]struct{}),
	}
	go b.run(ctx)
	return b
}

// ServeHTTP holds one event stream open until the client or the broker goes away.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		b.logger.Error("event stream cannot be flushed", "error", err)
		return
	}

	events, ok := b.subscribe()
	if !ok {
		return
	}
	defer b.unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-events:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// ReportSnapshot queues a commit notice without blocking. It is registered
// with SnapshotStore.OnCommit.
func (b *SSEBroker) ReportSnapshot(snap *usecase.Snapshot) {
	msg := SSEMessage{
		Generation: snap.Generation,
		Count:      len(snap.Records),
		Skipped:    len(snap.Skipped),
	}
	select {
	case b.commits <- msg:
	default:
		b.logger.Warn("dropping snapshot notice, broker is behind", "generation", snap.Generation)
	}
}

// ClientCount returns the number of open streams.
func (b *SSEBroker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *SSEBroker) subscribe() (chan []byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	events := make(chan []byte, subscriberBuffer)
	if b.latest != nil {
		events <- b.latest
	}
	b.subscribers[events] = struct{}{}
	b.logger.Debug("event stream opened", "streams", len(b.subscribers))
	return events, true
}

func (b *SSEBroker) unsubscribe(events chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[events]; ok {
		delete(b.subscribers, events)
		close(events)
		b.logger.Debug("event stream closed", "streams", len(b.subscribers))
	}
}

func (b *SSEBroker) publish(msg SSEMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to encode snapshot notice", "error", err)
		return
	}
	frame := []byte(fmt.Sprintf("id: %d\nevent: snapshot\ndata: %s\n\n", msg.Generation, data))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = frame
	lagging := 0
	for events := range b.subscribers {
		select {
		case events <- frame:
		default:
			lagging++
		}
	}
	if lagging > 0 {
		b.logger.Debug("subscribers skipped a generation", "generation", msg.Generation, "lagging", lagging)
	}
}

func (b *SSEBroker) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for events := range b.subscribers {
		delete(b.subscribers, events)
		close(events)
	}
}

func (b *SSEBroker) run(ctx context.Context) {
	defer b.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.commits:
			b.publish(msg)
		}
	}
}
