package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var catalogColumns = []string{"id", "name", "description", "total_credit", "definition", "created_at", "updated_at"}

const catalogDefinitionJSON = `{"course_banks":[{"name":"core","rule":{"kind":"ALL"},"courses":["104031"]},{"name":"electives","rule":{"kind":"ELECTIVE"},"credit":"10"}],"credit_overflows":[{"from":"core","to":"electives"}]}`

func TestCatalogRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, total_credit, definition, created_at, updated_at FROM catalogs WHERE id = $1")).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows(catalogColumns).AddRow("cat-1", "Computer Science", "", "155.5", catalogDefinitionJSON, now, now))

	catalog, err := repo.FindByID(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", catalog.Name)
	assert.True(t, catalog.TotalCredit.Equal(decimal.RequireFromString("155.5")))
	require.Len(t, catalog.CourseBanks, 2)
	assert.Equal(t, models.RuleAll, catalog.CourseBanks[0].Rule.Kind)
	require.NotNil(t, catalog.CourseBanks[1].Credit)
	assert.True(t, catalog.CourseBanks[1].Credit.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []models.CreditOverflow{{From: "core", To: "electives"}}, catalog.CreditOverflows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, total_credit, definition, created_at, updated_at FROM catalogs WHERE LOWER(name) LIKE $1 ORDER BY name ASC LIMIT 10 OFFSET 10")).
		WithArgs("%science%").
		WillReturnRows(sqlmock.NewRows(catalogColumns).AddRow("cat-1", "Computer Science", "", "155.5", `{}`, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM catalogs WHERE LOWER(name) LIKE $1")).
		WithArgs("%science%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	catalogs, total, err := repo.List(context.Background(), models.CatalogFilter{Search: "Science", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, catalogs, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("INSERT INTO catalogs").
		WithArgs(sqlmock.AnyArg(), "Physics", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	catalog := &models.Catalog{Name: "Physics", TotalCredit: decimal.NewFromInt(120)}
	require.NoError(t, repo.Create(context.Background(), catalog))
	assert.NotEmpty(t, catalog.ID)
	assert.False(t, catalog.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("UPDATE catalogs SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Catalog{ID: "missing", Name: "Physics"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM catalogs WHERE id = $1")).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "cat-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
