package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	"github.com/noah-isme/degree-planner-api/internal/transcript"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
)

// TranscriptService turns pasted transcripts into course statuses.
type TranscriptService struct {
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *TranscriptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{validator: validate, metrics: metrics, logger: logger}
}

// Parse parses the transcript without persisting anything.
func (s *TranscriptService) Parse(ctx context.Context, req dto.TranscriptRequest) ([]models.CourseStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transcript payload")
	}
	statuses, err := transcript.Parse(req.Text)
	s.metrics.RecordTranscriptParse(err)
	if err != nil {
		if errors.Is(err, transcript.ErrBadFormat) {
			s.logger.Debug("transcript rejected", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrBadTranscript.Code, appErrors.ErrBadTranscript.Status, appErrors.ErrBadTranscript.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to parse transcript")
	}
	return statuses, nil
}
