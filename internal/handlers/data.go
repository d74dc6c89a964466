package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/pkg/response"
)

// DataHandler serves the combined record snapshot in one call.
type DataHandler struct {
	assignments   *services.AssignmentService
	alerts        *services.AlertService
	announcements *services.AnnouncementService
}

// NewDataHandler constructs a data handler.
func NewDataHandler(assignments *services.AssignmentService, alerts *services.AlertService, announcements *services.AnnouncementService) *DataHandler {
	return &DataHandler{assignments: assignments, alerts: alerts, announcements: announcements}
}

type dataPayload struct {
	Assignments   []services.AssignmentDTO `json:"assignments"`
	Alerts        []models.Alert           `json:"alerts"`
	Announcements []models.Announcement    `json:"announcements"`
}

// Combined returns all three collections with the same view rules as the
// individual list endpoints.
func (h *DataHandler) Combined(c *gin.Context) {
	ctx := c.Request.Context()

	assignments, err := h.assignments.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	alerts, err := h.alerts.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	announcements, err := h.announcements.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dataPayload{
		Assignments:   assignments,
		Alerts:        alerts,
		Announcements: announcements,
	})
}
