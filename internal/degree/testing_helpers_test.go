package degree

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func credit(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func semester(label string) *string {
	return &label
}

func course(id, name, creditValue string, tags ...string) models.Course {
	return models.Course{ID: id, Name: name, Credit: dec(creditValue), Tags: tags}
}

func completed(c models.Course, sem string, score int) models.CourseStatus {
	return models.CourseStatus{
		Course:   c,
		State:    models.CourseStateComplete,
		Semester: semester(sem),
		Grade:    models.NumericGrade(score),
	}
}

func courseMap(courses ...models.Course) map[string]models.Course {
	out := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		out[c.ID] = c
	}
	return out
}

func findRequirement(status *models.DegreeStatus, name string) models.Requirement {
	for _, req := range status.CourseBankRequirements {
		if req.Name == name {
			return req
		}
	}
	return models.Requirement{}
}
