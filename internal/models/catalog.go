package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind identifies the matching and accounting strategy of a bank.
type RuleKind string

const (
	RuleAll                  RuleKind = "ALL"
	RuleAccumulateCredit     RuleKind = "ACCUMULATE_CREDIT"
	RuleAccumulateCourses    RuleKind = "ACCUMULATE_COURSES"
	RuleMalag                RuleKind = "MALAG"
	RuleSport                RuleKind = "SPORT"
	RuleElective             RuleKind = "ELECTIVE"
	RuleChains               RuleKind = "CHAINS"
	RuleSpecializationGroups RuleKind = "SPECIALIZATION_GROUPS"
	RuleWildcard             RuleKind = "WILDCARD"
)

// SpecializationGroup is a named elective cluster.
type SpecializationGroup struct {
	Name       string   `json:"name" validate:"required"`
	CoursesSum int      `json:"courses_sum" validate:"gte=0"`
	CourseList []string `json:"course_list"`
	// Each entry is satisfied by completing any one of its course ids.
	Mandatory [][]string `json:"mandatory,omitempty"`
}

// SpecializationGroups is the payload of a SPECIALIZATION_GROUPS rule.
type SpecializationGroups struct {
	Groups       []SpecializationGroup `json:"groups" validate:"dive"`
	GroupsNumber int                   `json:"groups_number" validate:"gte=0"`
}

// Rule is the closed variant set of bank rules. Only the fields of Kind are meaningful.
type Rule struct {
	Kind                 RuleKind              `json:"kind" validate:"required"`
	NumCourses           int                   `json:"num_courses,omitempty"`
	Chains               [][]string            `json:"chains,omitempty"`
	SpecializationGroups *SpecializationGroups `json:"specialization_groups,omitempty"`
	Wildcard             bool                  `json:"wildcard,omitempty"`
}

// Validate checks the payload matches the kind.
func (r Rule) Validate() error {
	switch r.Kind {
	case RuleAll, RuleAccumulateCredit, RuleMalag, RuleSport, RuleElective, RuleWildcard:
		return nil
	case RuleAccumulateCourses:
		if r.NumCourses < 0 {
			return fmt.Errorf("num_courses must not be negative")
		}
		return nil
	case RuleChains:
		if len(r.Chains) == 0 {
			return fmt.Errorf("chains rule requires at least one chain")
		}
		for i, chain := range r.Chains {
			if len(chain) == 0 {
				return fmt.Errorf("chain %d is empty", i)
			}
		}
		return nil
	case RuleSpecializationGroups:
		if r.SpecializationGroups == nil || len(r.SpecializationGroups.Groups) == 0 {
			return fmt.Errorf("specialization groups rule requires groups")
		}
		seen := make(map[string]bool, len(r.SpecializationGroups.Groups))
		for _, group := range r.SpecializationGroups.Groups {
			if seen[group.Name] {
				return fmt.Errorf("duplicate specialization group %q", group.Name)
			}
			seen[group.Name] = true
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

// Name returns the human readable rule name reported on requirements.
func (r Rule) Name() string {
	switch r.Kind {
	case RuleAll:
		return "all"
	case RuleAccumulateCredit:
		return "accumulate credit"
	case RuleAccumulateCourses:
		return "accumulate courses"
	case RuleMalag:
		return "malag"
	case RuleSport:
		return "sport"
	case RuleElective:
		return "elective"
	case RuleChains:
		return "chains"
	case RuleSpecializationGroups:
		return "specialization groups"
	case RuleWildcard:
		return "wildcard"
	default:
		return string(r.Kind)
	}
}

// CourseBank is a named requirement category.
type CourseBank struct {
	Name string `json:"name" validate:"required"`
	Rule Rule   `json:"rule"`
	// Nil means the bank has no direct credit requirement and forwards its credit downstream.
	Credit  *decimal.Decimal `json:"credit,omitempty"`
	Courses []string         `json:"courses,omitempty"`
}

// CourseIDs returns every course id the bank claims, in declared order and without duplicates.
func (b CourseBank) CourseIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, id := range b.Courses {
		add(id)
	}
	for _, chain := range b.Rule.Chains {
		for _, id := range chain {
			add(id)
		}
	}
	if b.Rule.SpecializationGroups != nil {
		for _, group := range b.Rule.SpecializationGroups.Groups {
			for _, id := range group.CourseList {
				add(id)
			}
			for _, options := range group.Mandatory {
				for _, id := range options {
					add(id)
				}
			}
		}
	}
	return ids
}

// CreditOverflow lets bank To claim what bank From did not use.
type CreditOverflow struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// ProgramCheckKind identifies a program specific postprocessing rule.
type ProgramCheckKind string

const (
	CheckEnglishContent ProgramCheckKind = "ENGLISH_CONTENT"
	CheckMaxRepetitions ProgramCheckKind = "MAX_REPETITIONS"
	CheckMinAverage     ProgramCheckKind = "MIN_AVERAGE"
)

// ProgramCheck is an advisory rule evaluated after all banks.
type ProgramCheck struct {
	Kind       ProgramCheckKind `json:"kind" validate:"required,oneof=ENGLISH_CONTENT MAX_REPETITIONS MIN_AVERAGE"`
	MinCourses int              `json:"min_courses,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Threshold  decimal.Decimal  `json:"threshold,omitempty"`
}

// Catalog describes a degree program.
type Catalog struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name" validate:"required"`
	Description         string              `json:"description,omitempty"`
	TotalCredit         decimal.Decimal     `json:"total_credit"`
	CourseBanks         []CourseBank        `json:"course_banks" validate:"dive"`
	CreditOverflows     []CreditOverflow    `json:"credit_overflows" validate:"dive"`
	CatalogReplacements map[string][]string `json:"catalog_replacements,omitempty"`
	CommonReplacements  map[string][]string `json:"common_replacements,omitempty"`
	Checks              []ProgramCheck      `json:"checks,omitempty" validate:"dive"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`

	// CourseToBank is derived from the banks, see BuildCourseToBank.
	CourseToBank map[string]string `json:"-"`
}

// BuildCourseToBank derives the course to bank lookup. The first bank claiming a course owns it.
func (c *Catalog) BuildCourseToBank() {
	lookup := make(map[string]string)
	for _, bank := range c.CourseBanks {
		for _, id := range bank.CourseIDs() {
			if _, taken := lookup[id]; !taken {
				lookup[id] = bank.Name
			}
		}
	}
	c.CourseToBank = lookup
}

// CourseList returns the course ids still mapped to bank, in declared order.
func (c *Catalog) CourseList(bankName string) []string {
	bank, ok := c.Bank(bankName)
	if !ok {
		return nil
	}
	var ids []string
	for _, id := range bank.CourseIDs() {
		if c.CourseToBank[id] == bankName {
			ids = append(ids, id)
		}
	}
	return ids
}

// Bank looks up a bank by name.
func (c *Catalog) Bank(name string) (CourseBank, bool) {
	for _, bank := range c.CourseBanks {
		if bank.Name == name {
			return bank, true
		}
	}
	return CourseBank{}, false
}

// CourseIDs returns every course id referenced by the catalog, replacements included.
func (c *Catalog) CourseIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, bank := range c.CourseBanks {
		for _, id := range bank.CourseIDs() {
			add(id)
		}
	}
	for _, table := range []map[string][]string{c.CatalogReplacements, c.CommonReplacements} {
		for original, substitutes := range table {
			add(original)
			for _, id := range substitutes {
				add(id)
			}
		}
	}
	return ids
}

// CatalogFilter scopes catalog listings.
type CatalogFilter struct {
	Search   string
	Page     int
	PageSize int
}
