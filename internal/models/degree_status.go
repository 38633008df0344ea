package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requirement is the per-bank output of a degree status computation.
type Requirement struct {
	Name              string           `json:"name"`
	Type              string           `json:"type"`
	CreditRequirement *decimal.Decimal `json:"credit_requirement,omitempty"`
	CourseRequirement *int             `json:"course_requirement,omitempty"`
	CreditCompleted   decimal.Decimal  `json:"credit_completed"`
	CourseCompleted   int              `json:"course_completed"`
	Completed         bool             `json:"completed"`
	Message           *string          `json:"message,omitempty"`
}

// DegreeStatus is the student's course list and the computed report.
type DegreeStatus struct {
	CourseStatuses         []CourseStatus  `json:"course_statuses"`
	CourseBankRequirements []Requirement   `json:"course_bank_requirements"`
	OverflowMsgs           []string        `json:"overflow_msgs"`
	TotalCredit            decimal.Decimal `json:"total_credit"`
}

// FindCourse returns the index of the first status for courseID, or -1.
func (d *DegreeStatus) FindCourse(courseID string) int {
	for i := range d.CourseStatuses {
		if d.CourseStatuses[i].Course.ID == courseID {
			return i
		}
	}
	return -1
}

// StudentRecord persists a student's catalog choice and degree status.
type StudentRecord struct {
	StudentID    string       `db:"student_id" json:"student_id"`
	CatalogID    *string      `db:"catalog_id" json:"catalog_id,omitempty"`
	DegreeStatus DegreeStatus `db:"-" json:"degree_status"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}
