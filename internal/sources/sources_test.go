package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

func TestFeedUpdatesDecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/updates", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]FeedUpdate{
			{ID: 1, Type: "Event", Title: "Career Fair", Content: "Main hall", Datetime: "2025-11-02T09:30:00Z"},
		})
	}))
	defer srv.Close()

	feed, err := NewFeedClient(srv.URL, time.Second)
	require.NoError(t, err)

	updates, err := feed.Updates(context.Background())
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, "Career Fair", updates[0].Title)
}

func TestFeedUpdatesRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	feed, err := NewFeedClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = feed.Updates(context.Background())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrInvalidUpstreamData.Code, appErr.Code)
}

func TestFeedUpdatesMapsTransportFailure(t *testing.T) {
	feed, err := NewFeedClient("http://127.0.0.1:1", 100*time.Millisecond)
	require.NoError(t, err)

	_, err = feed.Updates(context.Background())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrUpstreamUnavailable.Code, appErr.Code)
}

func TestFeedPushSendsBatch(t *testing.T) {
	var got struct {
		Updates []OutboundUpdate `json:"updates"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/add-update", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	feed, err := NewFeedClient(srv.URL, time.Second)
	require.NoError(t, err)

	err = feed.Push(context.Background(), []OutboundUpdate{
		{Title: "Exam", Type: "manual", Content: "Midterm Friday", Datetime: "2025-11-02T09:30:00Z"},
	})
	require.NoError(t, err)
	require.Len(t, got.Updates, 1)
	require.Equal(t, "Exam", got.Updates[0].Title)
}

func TestFeedPushSkipsEmptyBatch(t *testing.T) {
	feed, err := NewFeedClient("http://127.0.0.1:1", time.Second)
	require.NoError(t, err)
	require.NoError(t, feed.Push(context.Background(), nil))
}

func TestPeerAssignmentsDecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/external-assignments", r.URL.Path)
		_, _ = w.Write([]byte(`[{"externalId":"ext-1","title":"Lab 1","deadline":"2025-11-02T09:30:00Z","status":"Pending"}]`))
	}))
	defer srv.Close()

	peer, err := NewPeerClient(srv.URL, time.Second)
	require.NoError(t, err)

	assignments, err := peer.Assignments(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, "ext-1", assignments[0].ExternalID)
}

func TestPeerAssignmentsRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"oops"`))
	}))
	defer srv.Close()

	peer, err := NewPeerClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = peer.Assignments(context.Background())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrInvalidUpstreamData.Code, appErr.Code)
}

func TestPeerFetchAttachmentResolvesRelativeRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/uploads/handout.pdf", r.URL.Path)
		_, _ = w.Write([]byte("pdf-bytes"))
	}))
	defer srv.Close()

	peer, err := NewPeerClient(srv.URL, time.Second)
	require.NoError(t, err)

	data, err := peer.FetchAttachment(context.Background(), "/uploads/handout.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("pdf-bytes"), data)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	peer, err := NewPeerClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = peer.Assignments(context.Background())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrUpstreamUnavailable.Code, appErr.Code)
}
