package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Well-known course tags used by tag-based rules and program checks.
const (
	TagEnglishContent = "English content"
	TagMalag          = "Malag"
	TagSport          = "Sport"
)

// Course id prefixes used when a course carries no explicit tag.
const (
	SportCoursePrefix = "394"
	MalagCoursePrefix = "324"
)

// Course is immutable catalog reference data.
type Course struct {
	ID     string          `db:"id" json:"id"`
	Name   string          `db:"name" json:"name"`
	Credit decimal.Decimal `db:"credit" json:"credit"`
	Tags   []string        `db:"-" json:"tags,omitempty"`
}

// HasTag reports whether the course carries the tag.
func (c Course) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CourseState describes the student's progress in a course.
type CourseState string

const (
	CourseStateComplete    CourseState = "COMPLETE"
	CourseStateNotComplete CourseState = "NOT_COMPLETE"
	CourseStateInProgress  CourseState = "IN_PROGRESS"
	CourseStateIrrelevant  CourseState = "IRRELEVANT"
)

// GradeKind enumerates grade variants found on transcripts.
type GradeKind string

const (
	GradeKindNumeric                GradeKind = "NUMERIC"
	GradeKindBinary                 GradeKind = "BINARY"
	GradeKindExemptionWithoutCredit GradeKind = "EXEMPTION_WITHOUT_CREDIT"
	GradeKindExemptionWithCredit    GradeKind = "EXEMPTION_WITH_CREDIT"
	GradeKindNotComplete            GradeKind = "NOT_COMPLETE"
)

// PassingScore is the lowest numeric grade that passes a course.
const PassingScore = 55

// Grade is a single transcript grade.
type Grade struct {
	Kind   GradeKind `json:"kind"`
	Score  int       `json:"score,omitempty"`
	Passed bool      `json:"passed,omitempty"`
}

// NumericGrade builds a numeric grade.
func NumericGrade(score int) *Grade {
	return &Grade{Kind: GradeKindNumeric, Score: score}
}

// BinaryGrade builds a pass/fail grade.
func BinaryGrade(passed bool) *Grade {
	return &Grade{Kind: GradeKindBinary, Passed: passed}
}

// IsPassing reports whether the grade completes the course.
func (g Grade) IsPassing() bool {
	switch g.Kind {
	case GradeKindNumeric:
		return g.Score >= PassingScore
	case GradeKindBinary:
		return g.Passed
	case GradeKindExemptionWithCredit, GradeKindExemptionWithoutCredit:
		return true
	default:
		return false
	}
}

// StateForGrade maps a grade (or its absence) onto a course state.
func StateForGrade(grade *Grade) CourseState {
	if grade == nil {
		return CourseStateInProgress
	}
	if grade.IsPassing() {
		return CourseStateComplete
	}
	return CourseStateNotComplete
}

// CourseStatus is a course plus the student's facts about it.
type CourseStatus struct {
	Course                  Course      `json:"course"`
	State                   CourseState `json:"state,omitempty"`
	Semester                *string     `json:"semester,omitempty"`
	Grade                   *Grade      `json:"grade,omitempty"`
	Type                    *string     `json:"type,omitempty"`
	SpecializationGroupName *string     `json:"specialization_group_name,omitempty"`
	AdditionalMsg           *string     `json:"additional_msg,omitempty"`
	Modified                bool        `json:"modified"`
	TimesRepeated           int         `json:"times_repeated"`
}

// Completed reports whether the course counts as done.
func (s CourseStatus) Completed() bool {
	return s.State == CourseStateComplete
}

// Irrelevant reports whether the student excluded the course.
func (s CourseStatus) Irrelevant() bool {
	return s.State == CourseStateIrrelevant
}

// ValidForBank reports whether the course may be assigned to bank. A course already owned by another
// bank, including a manual pin, is not.
func (s CourseStatus) ValidForBank(bank string) bool {
	if s.Irrelevant() {
		return false
	}
	return s.Type == nil || *s.Type == bank
}

// SetType assigns the course to a bank.
func (s *CourseStatus) SetType(bank string) {
	name := bank
	s.Type = &name
}

// ClearType removes the bank assignment.
func (s *CourseStatus) ClearType() {
	s.Type = nil
}

// SetMessage replaces the advisory message.
func (s *CourseStatus) SetMessage(msg string) {
	m := msg
	s.AdditionalMsg = &m
}

// SetSpecializationGroup records the group the course counts toward.
func (s *CourseStatus) SetSpecializationGroup(name string) {
	n := name
	s.SpecializationGroupName = &n
}

// AssignedTo reports whether the course is currently owned by bank.
func (s CourseStatus) AssignedTo(bank string) bool {
	return s.Type != nil && *s.Type == bank
}

// SemesterOrder extracts the counter from labels like "Winter_2" or "Summer_2.5". Unknown labels sort
// first.
func SemesterOrder(semester *string) float64 {
	if semester == nil {
		return -1
	}
	idx := strings.LastIndex(*semester, "_")
	if idx < 0 {
		return -1
	}
	value, err := strconv.ParseFloat((*semester)[idx+1:], 64)
	if err != nil {
		return -1
	}
	return value
}
