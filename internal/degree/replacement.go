package degree

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

type replacementSource int

const (
	replacementCatalog replacementSource = iota
	replacementCommon
)

// substituteIndex maps a student course id to the catalog course ids it may stand in for.
type substituteIndex map[string]map[string]replacementSource

// buildSubstituteIndex resolves the student's courses against both replacement tables. Courses that
// are catalog courses themselves are never used as substitutes. Catalog-sanctioned entries win over
// common ones.
func buildSubstituteIndex(catalog *models.Catalog, statuses []models.CourseStatus) substituteIndex {
	taken := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		if status.Irrelevant() {
			continue
		}
		if _, inCatalog := catalog.CourseToBank[status.Course.ID]; inCatalog {
			continue
		}
		taken[status.Course.ID] = true
	}

	index := make(substituteIndex)
	tables := []struct {
		source replacementSource
		table  map[string][]string
	}{
		{replacementCatalog, catalog.CatalogReplacements},
		{replacementCommon, catalog.CommonReplacements},
	}
	for _, t := range tables {
		for original, substitutes := range t.table {
			for _, substitute := range substitutes {
				if !taken[substitute] {
					continue
				}
				if index[substitute] == nil {
					index[substitute] = make(map[string]replacementSource)
				}
				if _, exists := index[substitute][original]; !exists {
					index[substitute][original] = t.source
				}
			}
		}
	}
	return index
}

// match is a resolved required course.
type match struct {
	index      int
	substitute bool
}

// resolveCourse finds the student course counting for requiredID in bank. Direct matches are
// preferred, completed ones first; substitutes are searched in the catalog table and then in the
// common table. Courses in used were already matched by this bank.
func (r *run) resolveCourse(requiredID, bank string, used map[int]bool) (match, bool) {
	statuses := r.status.CourseStatuses

	direct := -1
	for i := range statuses {
		s := statuses[i]
		if used[i] || s.Course.ID != requiredID || !s.ValidForBank(bank) {
			continue
		}
		if s.Completed() {
			return match{index: i}, true
		}
		if direct < 0 {
			direct = i
		}
	}
	if direct >= 0 {
		return match{index: direct}, true
	}

	for _, source := range []replacementSource{replacementCatalog, replacementCommon} {
		for i := range statuses {
			s := statuses[i]
			if used[i] || !s.ValidForBank(bank) {
				continue
			}
			if got, ok := r.substitutes[s.Course.ID][requiredID]; ok && got == source {
				return match{index: i, substitute: true}, true
			}
		}
	}
	return match{}, false
}

// recordSubstitute notes the replacement on the student course and returns the credit the
// substitute falls short of the original by.
func (r *run) recordSubstitute(status *models.CourseStatus, requiredID string) decimal.Decimal {
	original := r.lookupCourse(requiredID)
	status.SetMessage(fmt.Sprintf(msgReplacement, original.Name, original.ID))
	shortfall := original.Credit.Sub(status.Course.Credit)
	if shortfall.IsPositive() {
		return shortfall
	}
	return decimal.Zero
}

// lookupCourse returns course metadata, or a placeholder when the id is unknown.
func (r *run) lookupCourse(id string) models.Course {
	if course, ok := r.courses[id]; ok {
		return course
	}
	return models.Course{ID: id, Name: msgCourseNotFound, Credit: decimal.Zero}
}
