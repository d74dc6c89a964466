package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusflow/campusflow/internal/database/testutil"
	"github.com/campusflow/campusflow/internal/store"
	"github.com/campusflow/campusflow/internal/uploads"
)

type publishedEvent struct {
	Stream string
	Event  string
	Data   any
}

// recordingPublisher captures fanout events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(stream, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Stream: stream, Event: event, Data: data})
}

func (p *recordingPublisher) count(stream, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Stream == stream && e.Event == event {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	return st
}

func newTestUploads(t *testing.T) *uploads.Manager {
	t.Helper()
	mgr, err := uploads.NewManager(t.TempDir())
	require.NoError(t, err)
	return mgr
}
