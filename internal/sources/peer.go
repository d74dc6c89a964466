package sources

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

// PeerAssignment is one assignment as reported by the peer posting service.
// Deadlines arrive as strings in whatever format the peer felt like using.
type PeerAssignment struct {
	ID            string `json:"id"`
	ExternalID    string `json:"externalId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Deadline      string `json:"deadline"`
	Status        string `json:"status"`
	AttachmentURL string `json:"attachmentUrl"`
}

// PeerClient talks to the external assignment-posting service.
type PeerClient struct {
	client
}

// NewPeerClient constructs a peer client with a bounded per-call timeout.
func NewPeerClient(baseURL string, timeout time.Duration) (*PeerClient, error) {
	if baseURL == "" {
		return nil, errors.New("peer client: base url is required")
	}
	return &PeerClient{client: newClient(baseURL, timeout)}, nil
}

// Assignments fetches the complete current assignment set from the peer.
func (c *PeerClient) Assignments(ctx context.Context) ([]PeerAssignment, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/external-assignments", &raw); err != nil {
		return nil, err
	}

	var assignments []PeerAssignment
	if err := json.Unmarshal(raw, &assignments); err != nil {
		return nil, apperrors.ErrInvalidUpstreamData.WithInternal(err)
	}
	return assignments, nil
}

// FetchAttachment retrieves the bytes behind an attachment reference so the
// engine can host a local copy.
func (c *PeerClient) FetchAttachment(ctx context.Context, ref string) ([]byte, error) {
	return c.fetchBytes(ctx, ref)
}
