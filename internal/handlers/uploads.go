package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/pkg/response"
)

// UploadHandler exposes management of stored uploads.
type UploadHandler struct {
	assignments *services.AssignmentService
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(assignments *services.AssignmentService) *UploadHandler {
	return &UploadHandler{assignments: assignments}
}

// Delete removes a stored file and strips any assignment references to it.
func (h *UploadHandler) Delete(c *gin.Context) {
	filename := strings.TrimSpace(c.Param("filename"))

	if err := h.assignments.RemoveUpload(c.Request.Context(), filename); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": filename})
}
