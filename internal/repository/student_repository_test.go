package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

func TestStudentRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	status := `{"course_statuses":[{"course":{"id":"104031","name":"Calculus 1","credit":"5.5"},"state":"COMPLETE","modified":false,"times_repeated":0}],"course_bank_requirements":[],"overflow_msgs":[],"total_credit":"5.5"}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, catalog_id, degree_status, updated_at FROM student_degree_status WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "catalog_id", "degree_status", "updated_at"}).
			AddRow("stu-1", "cat-1", status, time.Now()))

	record, err := repo.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NotNil(t, record.CatalogID)
	assert.Equal(t, "cat-1", *record.CatalogID)
	require.Len(t, record.DegreeStatus.CourseStatuses, 1)
	assert.Equal(t, models.CourseStateComplete, record.DegreeStatus.CourseStatuses[0].State)
	assert.Equal(t, "5.5", record.DegreeStatus.TotalCredit.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO student_degree_status").
		WithArgs("stu-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	catalogID := "cat-1"
	record := &models.StudentRecord{StudentID: "stu-1", CatalogID: &catalogID}
	require.NoError(t, repo.Save(context.Background(), record))
	assert.False(t, record.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByCatalog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM student_degree_status WHERE catalog_id = $1 ORDER BY student_id")).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2"))

	ids, err := NewStudentRepository(db).ListByCatalog(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
