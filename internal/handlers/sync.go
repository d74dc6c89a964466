package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusflow/campusflow/internal/services"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/logger"
	"github.com/campusflow/campusflow/pkg/response"
)

type peerRecordPayload struct {
	ExternalID    string `json:"externalId" validate:"omitempty,max=64"`
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description" validate:"omitempty"`
	Deadline      string `json:"deadline" validate:"required"`
	Status        string `json:"status" validate:"omitempty,max=32"`
	AttachmentURL string `json:"attachmentUrl" validate:"omitempty"`
}

// SyncHandler exposes the reconciliation trigger endpoints.
type SyncHandler struct {
	sync *services.SyncService
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(sync *services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Feed triggers one bidirectional cycle against the campus updates feed.
func (h *SyncHandler) Feed(c *gin.Context) {
	summary, err := h.sync.SyncFeed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// Peer triggers one full pull from the peer assignment service.
func (h *SyncHandler) Peer(c *gin.Context) {
	summary, err := h.sync.PullPeer(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// PeerRecord ingests one assignment pushed by the peer service. Repeated
// delivery of the same record is acknowledged without mutation.
func (h *SyncHandler) PeerRecord(c *gin.Context) {
	var payload peerRecordPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.sync.PushPeerRecord(c.Request.Context(), services.PeerPushInput{
		ExternalID:    payload.ExternalID,
		Title:         payload.Title,
		Description:   payload.Description,
		Deadline:      payload.Deadline,
		Status:        payload.Status,
		AttachmentURL: payload.AttachmentURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, result)
}

// feedSyncBestEffort runs a feed cycle after a local mutation so the feed
// sees new locally-owned records promptly. Failures are logged, never
// surfaced: the local mutation already committed.
func feedSyncBestEffort(c *gin.Context, sync *services.SyncService) {
	if sync == nil {
		return
	}
	if _, err := sync.SyncFeed(c.Request.Context()); err != nil && !errors.Is(err, apperrors.ErrSyncInProgress) {
		logger.WithModule("handlers").Warn("post-create feed sync failed", zap.Error(err))
	}
}
