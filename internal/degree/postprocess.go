package degree

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// postprocess runs the catalog's advisory checks. They only append messages.
func (r *run) postprocess() {
	for _, check := range r.catalog.Checks {
		switch check.Kind {
		case models.CheckEnglishContent:
			r.checkEnglishContent(check.MinCourses)
		case models.CheckMaxRepetitions:
			r.checkRepetitions(check.Limit)
		case models.CheckMinAverage:
			r.checkAverage(check.Threshold)
		}
	}
}

func (r *run) checkEnglishContent(minCourses int) {
	done := 0
	for _, s := range r.status.CourseStatuses {
		if s.Completed() && r.lookupTags(s.Course).HasTag(models.TagEnglishContent) {
			done++
		}
	}
	if done < minCourses {
		r.msgs = append(r.msgs, fmt.Sprintf(msgEnglishContent, minCourses, done))
	}
}

func (r *run) checkRepetitions(limit int) {
	for _, s := range r.status.CourseStatuses {
		if s.TimesRepeated > limit {
			r.msgs = append(r.msgs, fmt.Sprintf(msgRepetitions, s.Course.Name, s.Course.ID, s.TimesRepeated, limit))
		}
	}
}

// checkAverage weighs numeric grades of completed courses by credit. Students without numeric grades
// are not flagged.
func (r *run) checkAverage(threshold decimal.Decimal) {
	weighted := decimal.Zero
	credits := decimal.Zero
	for _, s := range r.status.CourseStatuses {
		if !s.Completed() || s.Grade == nil || s.Grade.Kind != models.GradeKindNumeric {
			continue
		}
		weighted = weighted.Add(s.Course.Credit.Mul(decimal.NewFromInt(int64(s.Grade.Score))))
		credits = credits.Add(s.Course.Credit)
	}
	if !credits.IsPositive() {
		return
	}
	average := weighted.Div(credits).Round(2)
	if average.LessThan(threshold) {
		r.msgs = append(r.msgs, fmt.Sprintf(msgAverage, average.String(), threshold.String()))
	}
}

// lookupTags prefers catalog metadata since transcript courses carry no tags.
func (r *run) lookupTags(course models.Course) models.Course {
	if len(course.Tags) > 0 {
		return course
	}
	if known, ok := r.courses[course.ID]; ok {
		return known
	}
	return course
}
