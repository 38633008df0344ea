package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// catalogDefinition is the JSON column holding everything but the catalog's identity.
type catalogDefinition struct {
	CourseBanks         []models.CourseBank     `json:"course_banks"`
	CreditOverflows     []models.CreditOverflow `json:"credit_overflows"`
	CatalogReplacements map[string][]string     `json:"catalog_replacements,omitempty"`
	CommonReplacements  map[string][]string     `json:"common_replacements,omitempty"`
	Checks              []models.ProgramCheck   `json:"checks,omitempty"`
}

type catalogRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	TotalCredit decimal.Decimal `db:"total_credit"`
	Definition  types.JSONText  `db:"definition"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row catalogRow) toModel() (*models.Catalog, error) {
	var def catalogDefinition
	if len(row.Definition) > 0 {
		if err := row.Definition.Unmarshal(&def); err != nil {
			return nil, fmt.Errorf("decode catalog %s definition: %w", row.ID, err)
		}
	}
	return &models.Catalog{
		ID:                  row.ID,
		Name:                row.Name,
		Description:         row.Description,
		TotalCredit:         row.TotalCredit,
		CourseBanks:         def.CourseBanks,
		CreditOverflows:     def.CreditOverflows,
		CatalogReplacements: def.CatalogReplacements,
		CommonReplacements:  def.CommonReplacements,
		Checks:              def.Checks,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

func newCatalogRow(catalog *models.Catalog) (catalogRow, error) {
	payload, err := json.Marshal(catalogDefinition{
		CourseBanks:         catalog.CourseBanks,
		CreditOverflows:     catalog.CreditOverflows,
		CatalogReplacements: catalog.CatalogReplacements,
		CommonReplacements:  catalog.CommonReplacements,
		Checks:              catalog.Checks,
	})
	if err != nil {
		return catalogRow{}, fmt.Errorf("encode catalog definition: %w", err)
	}
	return catalogRow{
		ID:          catalog.ID,
		Name:        catalog.Name,
		Description: catalog.Description,
		TotalCredit: catalog.TotalCredit,
		Definition:  types.JSONText(payload),
		CreatedAt:   catalog.CreatedAt,
		UpdatedAt:   catalog.UpdatedAt,
	}, nil
}

// CatalogRepository persists degree catalogs.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// List returns catalogs matching the filter ordered by name.
func (r *CatalogRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Catalog, int, error) {
	base := "FROM catalogs"
	var args []interface{}
	if filter.Search != "" {
		base += " WHERE LOWER(name) LIKE $1"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, description, total_credit, definition, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, offset)
	var rows []catalogRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list catalogs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count catalogs: %w", err)
	}

	catalogs := make([]models.Catalog, 0, len(rows))
	for _, row := range rows {
		catalog, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		catalogs = append(catalogs, *catalog)
	}
	return catalogs, total, nil
}

// FindByID fetches a catalog. It returns sql.ErrNoRows when absent.
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*models.Catalog, error) {
	const query = `SELECT id, name, description, total_credit, definition, created_at, updated_at FROM catalogs WHERE id = $1`
	var row catalogRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Create inserts a catalog, assigning an id when missing.
func (r *CatalogRepository) Create(ctx context.Context, catalog *models.Catalog) error {
	if catalog.ID == "" {
		catalog.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	catalog.CreatedAt = now
	catalog.UpdatedAt = now

	row, err := newCatalogRow(catalog)
	if err != nil {
		return err
	}
	const query = `INSERT INTO catalogs (id, name, description, total_credit, definition, created_at, updated_at)
VALUES (:id, :name, :description, :total_credit, :definition, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	return nil
}

// Update replaces a catalog's content. It returns sql.ErrNoRows when absent.
func (r *CatalogRepository) Update(ctx context.Context, catalog *models.Catalog) error {
	catalog.UpdatedAt = time.Now().UTC()
	row, err := newCatalogRow(catalog)
	if err != nil {
		return err
	}
	const query = `UPDATE catalogs SET name = :name, description = :description, total_credit = :total_credit,
definition = :definition, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update catalog: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a catalog. It returns sql.ErrNoRows when absent.
func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM catalogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}
	return expectAffected(res)
}
