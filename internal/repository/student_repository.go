package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

type studentRow struct {
	StudentID    string         `db:"student_id"`
	CatalogID    *string        `db:"catalog_id"`
	DegreeStatus types.JSONText `db:"degree_status"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// StudentRepository persists each student's catalog choice and degree status.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Get loads a student record. It returns sql.ErrNoRows when the student has none yet.
func (r *StudentRepository) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	const query = `SELECT student_id, catalog_id, degree_status, updated_at FROM student_degree_status WHERE student_id = $1`
	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}
	record := &models.StudentRecord{StudentID: row.StudentID, CatalogID: row.CatalogID, UpdatedAt: row.UpdatedAt}
	if len(row.DegreeStatus) > 0 {
		if err := row.DegreeStatus.Unmarshal(&record.DegreeStatus); err != nil {
			return nil, fmt.Errorf("decode degree status for %s: %w", studentID, err)
		}
	}
	return record, nil
}

// Save upserts the student record.
func (r *StudentRepository) Save(ctx context.Context, record *models.StudentRecord) error {
	status, err := marshalJSON(record.DegreeStatus)
	if err != nil {
		return fmt.Errorf("encode degree status for %s: %w", record.StudentID, err)
	}
	record.UpdatedAt = time.Now().UTC()
	row := studentRow{
		StudentID:    record.StudentID,
		CatalogID:    record.CatalogID,
		DegreeStatus: status,
		UpdatedAt:    record.UpdatedAt,
	}
	const query = `INSERT INTO student_degree_status (student_id, catalog_id, degree_status, updated_at)
VALUES (:student_id, :catalog_id, :degree_status, :updated_at)
ON CONFLICT (student_id)
DO UPDATE SET catalog_id = EXCLUDED.catalog_id, degree_status = EXCLUDED.degree_status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("save student %s: %w", record.StudentID, err)
	}
	return nil
}

// ListByCatalog returns the ids of students following the catalog.
func (r *StudentRepository) ListByCatalog(ctx context.Context, catalogID string) ([]string, error) {
	var ids []string
	const query = `SELECT student_id FROM student_degree_status WHERE catalog_id = $1 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, catalogID); err != nil {
		return nil, fmt.Errorf("list students for catalog %s: %w", catalogID, err)
	}
	return ids, nil
}
