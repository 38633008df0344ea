package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/degree"
	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/jobs"
)

type catalogStore interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Catalog, int, error)
	FindByID(ctx context.Context, id string) (*models.Catalog, error)
	Create(ctx context.Context, catalog *models.Catalog) error
	Update(ctx context.Context, catalog *models.Catalog) error
	Delete(ctx context.Context, id string) error
}

type catalogStudentLister interface {
	ListByCatalog(ctx context.Context, catalogID string) ([]string, error)
}

type courseWriter interface {
	Upsert(ctx context.Context, courses []models.Course) error
}

type recomputeQueue interface {
	Enqueue(job jobs.Job) error
}

// CatalogService manages catalogs and course reference data. Edits refresh every affected student in
// the background.
type CatalogService struct {
	repo      catalogStore
	students  catalogStudentLister
	courses   courseWriter
	queue     recomputeQueue
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService. A nil queue disables background recomputation.
func NewCatalogService(repo catalogStore, students catalogStudentLister, courses courseWriter, queue recomputeQueue, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		repo:      repo,
		students:  students,
		courses:   courses,
		queue:     queue,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns catalogs page by page.
func (s *CatalogService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Catalog, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	catalogs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalogs")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return catalogs, pagination, nil
}

// Get returns a catalog by id.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Catalog, error) {
	catalog, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get catalog")
	}
	return catalog, nil
}

// Create validates and stores a new catalog.
func (s *CatalogService) Create(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error) {
	if _, err := s.check(catalog); err != nil {
		return nil, err
	}
	catalog.ID = ""
	if err := s.repo.Create(ctx, catalog); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create catalog")
	}
	s.logger.Info("catalog created", zap.String("catalog_id", catalog.ID), zap.String("name", catalog.Name))
	return catalog, nil
}

// Update replaces a catalog and schedules recomputation of its students.
func (s *CatalogService) Update(ctx context.Context, id string, catalog *models.Catalog) (*models.Catalog, error) {
	if _, err := s.check(catalog); err != nil {
		return nil, err
	}
	catalog.ID = id
	if err := s.repo.Update(ctx, catalog); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update catalog")
	}
	students := s.catalogStudents(ctx, id)
	s.invalidate(ctx, students)
	s.enqueueRecompute(students)
	return catalog, nil
}

// Delete removes a catalog. Its students keep their courses and lose the catalog assignment.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	students := s.catalogStudents(ctx, id)
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "catalog not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete catalog")
	}
	s.invalidate(ctx, students)
	return nil
}

// Validate reports whether the catalog can be stored. Catalog problems are reported in the result,
// not as an error.
func (s *CatalogService) Validate(ctx context.Context, catalog *models.Catalog) (*dto.CatalogValidation, error) {
	order, err := s.check(catalog)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrInternal.Code {
			return nil, err
		}
		return &dto.CatalogValidation{Valid: false, Error: appErr.Message}, nil
	}
	return &dto.CatalogValidation{Valid: true, TraversalOrder: order}, nil
}

// UpsertCourses stores course reference data. Cached degree statuses are dropped since credits may
// have changed.
func (s *CatalogService) UpsertCourses(ctx context.Context, req dto.UpsertCoursesRequest) ([]models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid courses payload")
	}
	courses := make([]models.Course, 0, len(req.Courses))
	for _, input := range req.Courses {
		if input.Credit.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s has negative credit", input.ID))
		}
		courses = append(courses, models.Course{ID: input.ID, Name: input.Name, Credit: input.Credit, Tags: input.Tags})
	}
	if err := s.courses.Upsert(ctx, courses); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save courses")
	}
	s.cache.Invalidate(ctx, DegreeStatusKey("*"))
	return courses, nil
}

// check runs struct, rule and overflow graph validation and returns the bank traversal order.
func (s *CatalogService) check(catalog *models.Catalog) ([]string, error) {
	if catalog == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCatalog, "catalog is required")
	}
	if err := s.validator.Struct(catalog); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, fmt.Sprintf("invalid catalog: %v", err))
	}
	if catalog.TotalCredit.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidCatalog, "total_credit must not be negative")
	}
	for _, bank := range catalog.CourseBanks {
		if err := bank.Rule.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, fmt.Sprintf("bank %s: %v", bank.Name, err))
		}
	}
	order, err := degree.FindTraversalOrder(catalog)
	if err != nil {
		var cycle *degree.CycleError
		if errors.As(err, &cycle) {
			return nil, appErrors.Wrap(err, appErrors.ErrCyclicCatalog.Code, appErrors.ErrCyclicCatalog.Status, cycle.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, err.Error())
	}
	return order, nil
}

func (s *CatalogService) catalogStudents(ctx context.Context, catalogID string) []string {
	if s.students == nil {
		return nil
	}
	ids, err := s.students.ListByCatalog(ctx, catalogID)
	if err != nil {
		s.logger.Warn("failed to list catalog students", zap.String("catalog_id", catalogID), zap.Error(err))
		return nil
	}
	return ids
}

func (s *CatalogService) invalidate(ctx context.Context, studentIDs []string) {
	keys := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		keys = append(keys, DegreeStatusKey(id))
	}
	s.cache.Delete(ctx, keys...)
}

func (s *CatalogService) enqueueRecompute(studentIDs []string) {
	if s.queue == nil {
		return
	}
	for _, id := range studentIDs {
		job := jobs.Job{ID: uuid.NewString(), Type: RecomputeJobType, Key: id, Payload: id}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue recompute", zap.String("student_id", id), zap.Error(err))
		}
	}
}
