package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

type courseRow struct {
	ID     string          `db:"id"`
	Name   string          `db:"name"`
	Credit decimal.Decimal `db:"credit"`
	Tags   pq.StringArray  `db:"tags"`
}

func (row courseRow) toModel() models.Course {
	return models.Course{ID: row.ID, Name: row.Name, Credit: row.Credit, Tags: []string(row.Tags)}
}

// CourseRepository reads and maintains course reference data.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByIDs returns the known courses among ids keyed by id.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	result := make(map[string]models.Course, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `SELECT id, name, credit, tags FROM courses WHERE id = ANY($1)`
	var rows []courseRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	for _, row := range rows {
		result[row.ID] = row.toModel()
	}
	return result, nil
}

// Upsert inserts or refreshes courses in one transaction.
func (r *CourseRepository) Upsert(ctx context.Context, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course tx: %w", err)
	}
	const query = `INSERT INTO courses (id, name, credit, tags) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, credit = EXCLUDED.credit, tags = EXCLUDED.tags`
	for _, course := range courses {
		if _, err := tx.ExecContext(ctx, query, course.ID, course.Name, course.Credit, pq.Array(course.Tags)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert course %s: %w", course.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course tx: %w", err)
	}
	return nil
}

// ListMalagIDs returns the ids of courses approved as Malag electives.
func (r *CourseRepository) ListMalagIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT course_id FROM malag_courses ORDER BY course_id`); err != nil {
		return nil, fmt.Errorf("list malag courses: %w", err)
	}
	return ids, nil
}
