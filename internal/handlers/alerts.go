package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/pkg/response"
)

type createAlertPayload struct {
	Type    string `json:"type" validate:"omitempty,max=64"`
	Title   string `json:"title" validate:"omitempty,max=255"`
	Message string `json:"message" validate:"required"`
}

// AlertHandler exposes HTTP endpoints for alerts.
type AlertHandler struct {
	service *services.AlertService
	sync    *services.SyncService
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(service *services.AlertService, sync *services.SyncService) *AlertHandler {
	return &AlertHandler{service: service, sync: sync}
}

// List returns alerts inside the retention window, newest-first.
func (h *AlertHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}

// Create stores a manual alert.
func (h *AlertHandler) Create(c *gin.Context) {
	var payload createAlertPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), services.CreateAlertInput{
		Type:    payload.Type,
		Title:   payload.Title,
		Message: payload.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	feedSyncBestEffort(c, h.sync)
	response.Success(c, http.StatusCreated, created)
}
