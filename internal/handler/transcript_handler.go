package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/response"
)

type transcriptService interface {
	Parse(ctx context.Context, req dto.TranscriptRequest) ([]models.CourseStatus, error)
}

// TranscriptHandler parses transcripts without storing them.
type TranscriptHandler struct {
	service transcriptService
}

// NewTranscriptHandler builds a new handler.
func NewTranscriptHandler(service transcriptService) *TranscriptHandler {
	return &TranscriptHandler{service: service}
}

// Parse godoc
// @Summary Parse transcript text
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param payload body dto.TranscriptRequest true "Transcript text"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /transcripts/parse [post]
func (h *TranscriptHandler) Parse(c *gin.Context) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transcript payload"))
		return
	}
	courses, err := h.service.Parse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TranscriptResponse{Courses: courses}, nil)
}
