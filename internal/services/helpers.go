package services

import (
	"context"
	"strings"
	"time"
)

// feedTimeFormat is the datetime layout the campus updates feed expects on
// outbound pushes.
const feedTimeFormat = "2006-01-02 15:04:05"

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatFeedTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(feedTimeFormat)
}
