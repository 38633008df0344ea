package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/degree"
	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/jobs"
)

// RecomputeJobType tags queue jobs that recompute one student's degree status.
const RecomputeJobType = "degree.recompute"

type studentStore interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
	Save(ctx context.Context, record *models.StudentRecord) error
}

type catalogReader interface {
	FindByID(ctx context.Context, id string) (*models.Catalog, error)
}

type courseReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error)
	ListMalagIDs(ctx context.Context) ([]string, error)
}

type transcriptParser interface {
	Parse(ctx context.Context, req dto.TranscriptRequest) ([]models.CourseStatus, error)
}

// DegreeStatusService keeps each student's degree status in sync with their catalog and courses.
type DegreeStatusService struct {
	students    studentStore
	catalogs    catalogReader
	courses     courseReader
	transcripts transcriptParser
	engine      *degree.Engine
	cache       *CacheService
	metrics     *MetricsService
	locks       *keyedMutex
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDegreeStatusService constructs a DegreeStatusService.
func NewDegreeStatusService(
	students studentStore,
	catalogs catalogReader,
	courses courseReader,
	transcripts transcriptParser,
	engine *degree.Engine,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *DegreeStatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = degree.NewEngine(logger)
	}
	return &DegreeStatusService{
		students:    students,
		catalogs:    catalogs,
		courses:     courses,
		transcripts: transcripts,
		engine:      engine,
		cache:       cache,
		metrics:     metrics,
		locks:       newKeyedMutex(),
		validator:   validate,
		logger:      logger,
	}
}

// Get returns the stored degree status, preferring the cache.
func (s *DegreeStatusService) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	var cached models.StudentRecord
	if s.cache.Get(ctx, DegreeStatusKey(studentID), &cached) {
		return &cached, nil
	}
	record, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, DegreeStatusKey(studentID), record, 0)
	return record, nil
}

// Compute recomputes and stores the student's degree status.
func (s *DegreeStatusService) Compute(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	record, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.computeLocked(ctx, record)
}

// ImportTranscript replaces the student's courses with the parsed transcript. Manually modified
// courses are kept as they are.
func (s *DegreeStatusService) ImportTranscript(ctx context.Context, studentID string, req dto.TranscriptRequest) (*models.StudentRecord, error) {
	parsed, err := s.transcripts.Parse(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	record, err := s.loadOrNew(ctx, studentID)
	if err != nil {
		return nil, err
	}
	record.DegreeStatus.CourseStatuses = mergeStatuses(record.DegreeStatus.CourseStatuses, parsed)
	return s.persistLocked(ctx, record)
}

// UpdateCourse applies a manual override to one course. A course the student has no status for is
// created from the course reference data.
func (s *DegreeStatusService) UpdateCourse(ctx context.Context, studentID, courseID string, req dto.UpdateCourseRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course update payload")
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	record, err := s.loadOrNew(ctx, studentID)
	if err != nil {
		return nil, err
	}

	statuses := record.DegreeStatus.CourseStatuses
	idx := record.DegreeStatus.FindCourse(courseID)
	if idx < 0 {
		found, err := s.courses.FindByIDs(ctx, []string{courseID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		course, ok := found[courseID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		statuses = append(statuses, models.CourseStatus{Course: course, State: models.CourseStateNotComplete})
		idx = len(statuses) - 1
	}
	applyCourseUpdate(&statuses[idx], req)
	record.DegreeStatus.CourseStatuses = statuses

	return s.persistLocked(ctx, record)
}

// AssignCatalog sets the catalog the student follows and recomputes.
func (s *DegreeStatusService) AssignCatalog(ctx context.Context, studentID string, req dto.AssignCatalogRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid catalog assignment payload")
	}
	if _, err := s.findCatalog(ctx, req.CatalogID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	record, err := s.loadOrNew(ctx, studentID)
	if err != nil {
		return nil, err
	}
	catalogID := req.CatalogID
	record.CatalogID = &catalogID
	return s.computeLocked(ctx, record)
}

// HandleRecompute processes a recompute queue job. Students that no longer exist or lost their catalog
// are skipped without retry.
func (s *DegreeStatusService) HandleRecompute(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		err := fmt.Errorf("recompute job %s: unexpected payload %T", job.ID, job.Payload)
		s.metrics.RecordRecomputeJob(err)
		s.logger.Error("dropping recompute job", zap.Error(err))
		return nil
	}
	_, err := s.Compute(ctx, studentID)
	s.metrics.RecordRecomputeJob(err)
	if err != nil && (appErrors.Is(err, appErrors.ErrNotFound) || appErrors.Is(err, appErrors.ErrValidation)) {
		s.logger.Info("skipping recompute", zap.String("student_id", studentID), zap.Error(err))
		return nil
	}
	return err
}

// persistLocked computes when the student has a catalog and otherwise stores the courses as given.
func (s *DegreeStatusService) persistLocked(ctx context.Context, record *models.StudentRecord) (*models.StudentRecord, error) {
	if record.CatalogID != nil {
		return s.computeLocked(ctx, record)
	}
	if err := s.students.Save(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save degree status")
	}
	s.cache.Set(ctx, DegreeStatusKey(record.StudentID), record, 0)
	return record, nil
}

func (s *DegreeStatusService) computeLocked(ctx context.Context, record *models.StudentRecord) (*models.StudentRecord, error) {
	if record.CatalogID == nil || *record.CatalogID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no catalog assigned")
	}
	catalog, err := s.findCatalog(ctx, *record.CatalogID)
	if err != nil {
		return nil, err
	}

	ids := catalog.CourseIDs()
	for _, status := range record.DegreeStatus.CourseStatuses {
		ids = append(ids, status.Course.ID)
	}
	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	var malag []string
	if hasMalagBank(catalog) {
		malag, err = s.courses.ListMalagIDs(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load malag courses")
		}
	}

	start := time.Now()
	status := s.engine.Compute(degree.Input{
		Catalog:      catalog,
		Courses:      courses,
		Status:       &record.DegreeStatus,
		MalagCourses: malag,
	})
	s.metrics.ObserveComputation(time.Since(start), unmetBanks(status), nil)
	record.DegreeStatus = *status

	if err := s.students.Save(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save degree status")
	}
	s.cache.Set(ctx, DegreeStatusKey(record.StudentID), record, 0)

	s.logger.Debug("degree status computed",
		zap.String("student_id", record.StudentID),
		zap.String("catalog_id", catalog.ID),
		zap.String("total_credit", status.TotalCredit.String()),
	)
	return record, nil
}

func (s *DegreeStatusService) load(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	record, err := s.students.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "degree status not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load degree status")
	}
	return record, nil
}

func (s *DegreeStatusService) loadOrNew(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	record, err := s.load(ctx, studentID)
	if appErrors.Is(err, appErrors.ErrNotFound) {
		return &models.StudentRecord{StudentID: studentID}, nil
	}
	return record, err
}

func (s *DegreeStatusService) findCatalog(ctx context.Context, id string) (*models.Catalog, error) {
	catalog, err := s.catalogs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	return catalog, nil
}

// mergeStatuses keeps modified statuses and takes everything else from the transcript.
func mergeStatuses(existing, parsed []models.CourseStatus) []models.CourseStatus {
	modified := make(map[string]bool)
	merged := make([]models.CourseStatus, 0, len(existing)+len(parsed))
	for _, status := range existing {
		if status.Modified {
			modified[status.Course.ID] = true
			merged = append(merged, status)
		}
	}
	for _, status := range parsed {
		if !modified[status.Course.ID] {
			merged = append(merged, status)
		}
	}
	return merged
}

func applyCourseUpdate(status *models.CourseStatus, req dto.UpdateCourseRequest) {
	if req.Type != nil {
		if *req.Type == "" {
			status.ClearType()
		} else {
			status.SetType(*req.Type)
		}
	}
	if req.Grade != nil {
		grade := *req.Grade
		status.Grade = &grade
		if req.State == nil {
			status.State = models.StateForGrade(&grade)
		}
	}
	if req.State != nil {
		status.State = *req.State
	}
	if req.Semester != nil {
		semester := *req.Semester
		status.Semester = &semester
	}
	if req.Credit != nil {
		status.Course.Credit = *req.Credit
	}
	status.Modified = true
	if req.Modified != nil {
		status.Modified = *req.Modified
	}
}

func hasMalagBank(catalog *models.Catalog) bool {
	for _, bank := range catalog.CourseBanks {
		if bank.Rule.Kind == models.RuleMalag {
			return true
		}
	}
	return false
}

func unmetBanks(status *models.DegreeStatus) int {
	unmet := 0
	for _, req := range status.CourseBankRequirements {
		if !req.Completed {
			unmet++
		}
	}
	return unmet
}
