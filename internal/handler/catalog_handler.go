package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Catalog, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Catalog, error)
	Create(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error)
	Update(ctx context.Context, id string, catalog *models.Catalog) (*models.Catalog, error)
	Delete(ctx context.Context, id string) error
	Validate(ctx context.Context, catalog *models.Catalog) (*dto.CatalogValidation, error)
	UpsertCourses(ctx context.Context, req dto.UpsertCoursesRequest) ([]models.Course, error)
}

// CatalogHandler exposes catalog and course reference data endpoints.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler builds a new handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// List godoc
// @Summary List catalogs
// @Tags Catalogs
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalogs [get]
func (h *CatalogHandler) List(c *gin.Context) {
	var filter models.CatalogFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	catalogs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalogs, pagination)
}

// Get godoc
// @Summary Get catalog by id
// @Tags Catalogs
// @Produce json
// @Param id path string true "Catalog ID"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	catalog, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalog, nil)
}

// Create godoc
// @Summary Create catalog
// @Tags Catalogs
// @Accept json
// @Produce json
// @Param payload body models.Catalog true "Catalog payload"
// @Success 201 {object} response.Envelope
// @Router /catalogs [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var catalog models.Catalog
	if err := c.ShouldBindJSON(&catalog); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), &catalog)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Replace catalog
// @Description Students following the catalog are recomputed in the background.
// @Tags Catalogs
// @Accept json
// @Produce json
// @Param id path string true "Catalog ID"
// @Param payload body models.Catalog true "Catalog payload"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id} [put]
func (h *CatalogHandler) Update(c *gin.Context) {
	var catalog models.Catalog
	if err := c.ShouldBindJSON(&catalog); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog payload"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), &catalog)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete catalog
// @Tags Catalogs
// @Param id path string true "Catalog ID"
// @Success 204
// @Router /catalogs/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Validate godoc
// @Summary Validate catalog without saving
// @Tags Catalogs
// @Accept json
// @Produce json
// @Param payload body models.Catalog true "Catalog payload"
// @Success 200 {object} response.Envelope
// @Router /catalogs/validate [post]
func (h *CatalogHandler) Validate(c *gin.Context) {
	var catalog models.Catalog
	if err := c.ShouldBindJSON(&catalog); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), &catalog)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpsertCourses godoc
// @Summary Upload course reference data
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.UpsertCoursesRequest true "Courses payload"
// @Success 200 {object} response.Envelope
// @Router /courses [put]
func (h *CatalogHandler) UpsertCourses(c *gin.Context) {
	var req dto.UpsertCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid courses payload"))
		return
	}
	courses, err := h.service.UpsertCourses(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
