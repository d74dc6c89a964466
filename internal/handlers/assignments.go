package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/campusflow/internal/services"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/response"
)

// maxSubmissionBytes caps uploaded submission size.
const maxSubmissionBytes = 10 << 20 // 10 MiB

var allowedSubmissionExts = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

type createAssignmentPayload struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty"`
	Deadline    string `json:"deadline" validate:"required"`
}

// AssignmentHandler exposes HTTP endpoints for assignments and submissions.
type AssignmentHandler struct {
	service *services.AssignmentService
	sync    *services.SyncService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(service *services.AssignmentService, sync *services.SyncService) *AssignmentHandler {
	return &AssignmentHandler{service: service, sync: sync}
}

// List returns every assignment, soonest deadline first.
func (h *AssignmentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}

// Create stores a locally authored assignment.
func (h *AssignmentHandler) Create(c *gin.Context) {
	var payload createAssignmentPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), services.CreateAssignmentInput{
		Title:       payload.Title,
		Description: payload.Description,
		Deadline:    payload.Deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	feedSyncBestEffort(c, h.sync)
	response.Success(c, http.StatusCreated, created)
}

// Submit accepts a multipart file upload for the assignment named in the path
// and marks it completed.
func (h *AssignmentHandler) Submit(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewValidation("a submission file is required"))
		return
	}
	if file.Size > maxSubmissionBytes {
		response.Error(c, apperrors.NewValidation("submission exceeds the 10MB limit"))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedSubmissionExts[ext]; !ok {
		response.Error(c, apperrors.NewValidation("only pdf and image submissions are accepted"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, apperrors.NewValidation("could not read the uploaded file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSubmissionBytes+1))
	if err != nil {
		response.Error(c, apperrors.NewValidation("could not read the uploaded file"))
		return
	}
	if len(data) > maxSubmissionBytes {
		response.Error(c, apperrors.NewValidation("submission exceeds the 10MB limit"))
		return
	}

	updated, err := h.service.Submit(c.Request.Context(), services.SubmitInput{
		AssignmentID: id,
		Filename:     file.Filename,
		Data:         data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}
