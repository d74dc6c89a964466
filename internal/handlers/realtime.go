package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/realtime"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into WebSocket streams.
type RealtimeHandler struct {
	hub            *realtime.Hub
	allowedStreams map[string]struct{}
}

// NewRealtimeHandler constructs a realtime handler restricted to the given
// streams. If none are provided, any stream name is accepted.
func NewRealtimeHandler(hub *realtime.Hub, streams ...string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		allowed[stream] = struct{}{}
	}

	return &RealtimeHandler{hub: hub, allowedStreams: allowed}
}

// Stream upgrades the request and subscribes it to the requested streams.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = realtime.AllStreams()
	}

	if len(h.allowedStreams) > 0 {
		for _, stream := range streams {
			if _, ok := h.allowedStreams[stream]; !ok {
				response.Error(c, apperrors.ErrNotFound)
				return
			}
		}
	}

	h.hub.Serve(streams, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	var streams []string

	for _, queryStream := range c.QueryArray("stream") {
		if normalized := normalizeStream(queryStream); normalized != "" {
			streams = append(streams, normalized)
		}
	}

	raw := c.Query("streams")
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if normalized := normalizeStream(part); normalized != "" {
				streams = append(streams, normalized)
			}
		}
	}

	return uniqueStreams(streams)
}

func normalizeStream(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func uniqueStreams(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
