package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/jobs"
)

type memoryCacheStub struct {
	mu      sync.Mutex
	entries map[string][]byte
	err     error
}

func newMemoryCacheStub() *memoryCacheStub {
	return &memoryCacheStub{entries: make(map[string][]byte)}
}

func (m *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheStub) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return m.err
}

func (m *memoryCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return m.err
}

func (m *memoryCacheStub) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type studentStoreStub struct {
	mu      sync.Mutex
	records map[string]models.StudentRecord
	saves   int
	saveErr error
}

func newStudentStoreStub(records ...models.StudentRecord) *studentStoreStub {
	s := &studentStoreStub{records: make(map[string]models.StudentRecord)}
	for _, record := range records {
		s.records[record.StudentID] = record
	}
	return s
}

func (s *studentStoreStub) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := record
	clone.DegreeStatus.CourseStatuses = append([]models.CourseStatus(nil), record.DegreeStatus.CourseStatuses...)
	return &clone, nil
}

func (s *studentStoreStub) Save(ctx context.Context, record *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.records[record.StudentID] = *record
	return nil
}

func (s *studentStoreStub) ListByCatalog(ctx context.Context, catalogID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, record := range s.records {
		if record.CatalogID != nil && *record.CatalogID == catalogID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type catalogStoreStub struct {
	catalogs map[string]models.Catalog
	err      error
	deleted  []string
}

func newCatalogStoreStub(catalogs ...models.Catalog) *catalogStoreStub {
	s := &catalogStoreStub{catalogs: make(map[string]models.Catalog)}
	for _, catalog := range catalogs {
		s.catalogs[catalog.ID] = catalog
	}
	return s
}

func (s *catalogStoreStub) List(ctx context.Context, filter models.CatalogFilter) ([]models.Catalog, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	result := make([]models.Catalog, 0, len(s.catalogs))
	for _, catalog := range s.catalogs {
		result = append(result, catalog)
	}
	return result, len(result), nil
}

// FindByID returns a fresh copy so callers may mutate the derived lookup.
func (s *catalogStoreStub) FindByID(ctx context.Context, id string) (*models.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	catalog, ok := s.catalogs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	catalog.CourseToBank = nil
	return &catalog, nil
}

func (s *catalogStoreStub) Create(ctx context.Context, catalog *models.Catalog) error {
	if s.err != nil {
		return s.err
	}
	if catalog.ID == "" {
		catalog.ID = "generated"
	}
	s.catalogs[catalog.ID] = *catalog
	return nil
}

func (s *catalogStoreStub) Update(ctx context.Context, catalog *models.Catalog) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.catalogs[catalog.ID]; !ok {
		return sql.ErrNoRows
	}
	s.catalogs[catalog.ID] = *catalog
	return nil
}

func (s *catalogStoreStub) Delete(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.catalogs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.catalogs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type courseStoreStub struct {
	courses    map[string]models.Course
	malag      []string
	malagCalls int
	upserted   []models.Course
}

func newCourseStoreStub(courses ...models.Course) *courseStoreStub {
	s := &courseStoreStub{courses: make(map[string]models.Course)}
	for _, course := range courses {
		s.courses[course.ID] = course
	}
	return s
}

func (s *courseStoreStub) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	result := make(map[string]models.Course)
	for _, id := range ids {
		if course, ok := s.courses[id]; ok {
			result[id] = course
		}
	}
	return result, nil
}

func (s *courseStoreStub) ListMalagIDs(ctx context.Context) ([]string, error) {
	s.malagCalls++
	return s.malag, nil
}

func (s *courseStoreStub) Upsert(ctx context.Context, courses []models.Course) error {
	s.upserted = append(s.upserted, courses...)
	for _, course := range courses {
		s.courses[course.ID] = course
	}
	return nil
}

type transcriptStub struct {
	statuses []models.CourseStatus
	err      error
}

func (t transcriptStub) Parse(ctx context.Context, req dto.TranscriptRequest) ([]models.CourseStatus, error) {
	return t.statuses, t.err
}

type queueStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}
