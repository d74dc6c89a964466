package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/pkg/response"
)

type createAnnouncementPayload struct {
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
	Type    string `json:"type" validate:"omitempty,max=64"`
}

// AnnouncementHandler exposes HTTP endpoints for announcements.
type AnnouncementHandler struct {
	service *services.AnnouncementService
	sync    *services.SyncService
}

// NewAnnouncementHandler constructs an announcement handler.
func NewAnnouncementHandler(service *services.AnnouncementService, sync *services.SyncService) *AnnouncementHandler {
	return &AnnouncementHandler{service: service, sync: sync}
}

// List returns announcements, collapsed and newest-first.
func (h *AnnouncementHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}

// Create stores a manual announcement. Duplicates are rejected.
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var payload createAnnouncementPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	created, err := h.service.CreateManual(c.Request.Context(), services.CreateAnnouncementInput{
		Title:   payload.Title,
		Message: payload.Message,
		Type:    payload.Type,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	feedSyncBestEffort(c, h.sync)
	response.Success(c, http.StatusCreated, created)
}
