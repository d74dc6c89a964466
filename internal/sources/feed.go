package sources

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

// FeedUpdate is one entry from the campus updates feed.
type FeedUpdate struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Datetime string `json:"datetime"`
}

// OutboundUpdate is the shape the feed accepts when we push announcements it
// does not own back to it.
type OutboundUpdate struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Datetime string `json:"datetime"`
	Content  string `json:"content"`
}

// FeedClient talks to the campus updates feed (bidirectional).
type FeedClient struct {
	client
}

// NewFeedClient constructs a feed client with a bounded per-call timeout.
func NewFeedClient(baseURL string, timeout time.Duration) (*FeedClient, error) {
	if baseURL == "" {
		return nil, errors.New("feed client: base url is required")
	}
	return &FeedClient{client: newClient(baseURL, timeout)}, nil
}

// Updates fetches the complete current update set. A non-array response is a
// protocol violation and maps to InvalidUpstreamData.
func (c *FeedClient) Updates(ctx context.Context) ([]FeedUpdate, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/updates", &raw); err != nil {
		return nil, err
	}

	var updates []FeedUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, apperrors.ErrInvalidUpstreamData.WithInternal(err)
	}
	return updates, nil
}

// Push sends announcements back to the feed in one batch call. Callers treat
// failures as best-effort.
func (c *FeedClient) Push(ctx context.Context, updates []OutboundUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return c.postJSON(ctx, "/add-update", map[string]any{"updates": updates})
}
