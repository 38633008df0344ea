package degree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

func TestComputeReplacementShortfallMovesDownstream(t *testing.T) {
	c1 := course("C1", "Calculus 1", "5.5")
	c2 := course("C2", "Linear Algebra", "3")
	e1 := course("E1", "Compilers", "4")
	e2 := course("E2", "Databases", "4")
	s1 := course("S1", "Calculus Short", "3.5")

	catalog := &models.Catalog{
		ID: "cs",
		CourseBanks: []models.CourseBank{
			{Name: "core", Rule: models.Rule{Kind: models.RuleAll}, Courses: []string{"C1", "C2"}},
			{Name: "electives", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("10"), Courses: []string{"E1", "E2"}},
		},
		CreditOverflows:     []models.CreditOverflow{{From: "core", To: "electives"}},
		CatalogReplacements: map[string][]string{"C1": {"S1"}},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{
		completed(c2, "Winter_1", 90),
		completed(s1, "Winter_1", 80),
		completed(e1, "Spring_2", 70),
		completed(e2, "Spring_2", 75),
	}}

	result := NewEngine(zap.NewNop()).Compute(Input{
		Catalog: catalog,
		Courses: courseMap(c1, c2, e1, e2, s1),
		Status:  status,
	})

	core := findRequirement(result, "core")
	require.NotNil(t, core.CreditRequirement)
	assert.True(t, core.CreditRequirement.Equal(dec("8.5")))
	assert.True(t, core.CreditCompleted.Equal(dec("6.5")))
	assert.True(t, core.Completed)

	electives := findRequirement(result, "electives")
	require.NotNil(t, electives.CreditRequirement)
	assert.True(t, electives.CreditRequirement.Equal(dec("12")))
	assert.True(t, electives.CreditCompleted.Equal(dec("8")))
	assert.False(t, electives.Completed)

	idx := result.FindCourse("S1")
	require.GreaterOrEqual(t, idx, 0)
	substitute := result.CourseStatuses[idx]
	require.NotNil(t, substitute.Type)
	assert.Equal(t, "core", *substitute.Type)
	require.NotNil(t, substitute.AdditionalMsg)
	assert.Contains(t, *substitute.AdditionalMsg, "Calculus 1")

	require.Len(t, result.OverflowMsgs, 1)
	assert.Contains(t, result.OverflowMsgs[0], "missing in bank core")
	assert.True(t, result.TotalCredit.Equal(dec("14.5")))
}

func TestComputeCreditOverflowAndLeftovers(t *testing.T) {
	a1 := course("A1", "Physics 1", "3")
	a2 := course("A2", "Physics 2", "3")
	b1 := course("B1", "Seminar", "2")
	x1 := course("X1", "Workshop", "2")

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "physics", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("4"), Courses: []string{"A1", "A2"}},
			{Name: "seminars", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("5"), Courses: []string{"B1"}},
			{Name: "extra", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Courses: []string{"X1"}},
		},
		CreditOverflows: []models.CreditOverflow{{From: "physics", To: "seminars"}},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{
		completed(a1, "Winter_1", 80),
		completed(a2, "Spring_1", 80),
		completed(b1, "Spring_1", 80),
		completed(x1, "Winter_2", 80),
	}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Courses: courseMap(a1, a2, b1, x1), Status: status})

	physics := findRequirement(result, "physics")
	assert.True(t, physics.Completed)
	assert.True(t, physics.CreditCompleted.Equal(dec("4")))

	seminars := findRequirement(result, "seminars")
	assert.True(t, seminars.CreditCompleted.Equal(dec("4")))
	assert.False(t, seminars.Completed)

	extra := findRequirement(result, "extra")
	assert.Nil(t, extra.CreditRequirement)

	joined := strings.Join(result.OverflowMsgs, "\n")
	assert.Contains(t, joined, "2 credits were transferred from bank physics to bank seminars")
	assert.Contains(t, joined, "bank extra has no credit requirement")
	assert.Contains(t, joined, "2 credits were not counted in any bank")
	assert.True(t, result.TotalCredit.Equal(dec("10")))
}

func TestComputeChainsPicksFirstCompletedChain(t *testing.T) {
	p1 := course("P1", "Mechanics", "3")
	p2 := course("P2", "Waves", "3")
	q1 := course("Q1", "Genetics", "3")
	q2 := course("Q2", "Evolution", "3")

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{{
			Name:   "science",
			Credit: credit("6"),
			Rule:   models.Rule{Kind: models.RuleChains, Chains: [][]string{{"P1", "P2"}, {"Q1", "Q2"}}},
		}},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{
		completed(p1, "Winter_1", 90),
		completed(q1, "Winter_1", 90),
		completed(q2, "Spring_1", 90),
	}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Courses: courseMap(p1, p2, q1, q2), Status: status})

	science := findRequirement(result, "science")
	assert.True(t, science.Completed)
	assert.Equal(t, 3, science.CourseCompleted)
	require.NotNil(t, science.Message)
	assert.Equal(t, "completed chain: Genetics, Evolution", *science.Message)
	assert.True(t, science.CreditCompleted.Equal(dec("6")))
	assert.True(t, result.TotalCredit.Equal(dec("9")))
}

func TestComputeAllAddsPlaceholdersAndIsIdempotent(t *testing.T) {
	c1 := course("C1", "Intro", "4")
	c2 := course("C2", "Data Structures", "4")
	free := course("F1", "Photography", "2")

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "core", Rule: models.Rule{Kind: models.RuleAll}, Courses: []string{"C1", "C2"}},
			{Name: "free", Rule: models.Rule{Kind: models.RuleElective}, Credit: credit("2")},
		},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{
		completed(free, "Spring_2", 60),
		completed(c1, "Winter_1", 70),
	}}
	engine := NewEngine(zap.NewNop())
	input := Input{Catalog: catalog, Courses: courseMap(c1, c2, free), Status: status}

	first := engine.Compute(input)
	snapshot, err := json.Marshal(first)
	require.NoError(t, err)

	core := findRequirement(first, "core")
	assert.False(t, core.Completed)
	assert.True(t, core.CreditRequirement.Equal(dec("8")))

	idx := first.FindCourse("C2")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, models.CourseStateNotComplete, first.CourseStatuses[idx].State)
	assert.Equal(t, "core", *first.CourseStatuses[idx].Type)

	assert.Equal(t, "C1", first.CourseStatuses[0].Course.ID, "statuses are sorted by semester")
	assert.True(t, findRequirement(first, "free").Completed)

	second := engine.Compute(Input{Catalog: catalog, Courses: courseMap(c1, c2, free), Status: first})
	again, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(again))
}

func TestComputeHonoursManualAssignments(t *testing.T) {
	c1 := course("C1", "Intro", "4")
	pinned := completed(c1, "Winter_1", 80)
	pinned.Modified = true
	pinned.SetType("free")

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "core", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("4"), Courses: []string{"C1"}},
			{Name: "free", Rule: models.Rule{Kind: models.RuleElective}, Credit: credit("4")},
		},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{pinned}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Courses: courseMap(c1), Status: status})

	assert.False(t, findRequirement(result, "core").Completed)
	assert.True(t, findRequirement(result, "free").Completed)
	assert.Equal(t, "free", *result.CourseStatuses[0].Type)
}

func TestComputeIrrelevantCoursesNeverCount(t *testing.T) {
	c1 := course("C1", "Intro", "4")
	skipped := completed(c1, "Winter_1", 80)
	skipped.State = models.CourseStateIrrelevant

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "core", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("4"), Courses: []string{"C1"}},
		},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{skipped}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Courses: courseMap(c1), Status: status})

	assert.True(t, result.TotalCredit.IsZero())
	assert.Nil(t, result.CourseStatuses[0].Type)
	assert.False(t, findRequirement(result, "core").Completed)
}

func TestComputeMalagAndSportByPrefix(t *testing.T) {
	malag := course("324100", "Philosophy", "2")
	sport := course("394800", "Basketball", "1")
	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "malag", Rule: models.Rule{Kind: models.RuleMalag}, Credit: credit("2")},
			{Name: "sport", Rule: models.Rule{Kind: models.RuleSport}, Credit: credit("1")},
		},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{
		completed(sport, "Winter_1", 90),
		completed(malag, "Winter_1", 90),
	}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Status: status})

	assert.True(t, findRequirement(result, "malag").Completed)
	assert.True(t, findRequirement(result, "sport").Completed)
	assert.True(t, result.TotalCredit.Equal(dec("3")))
}

func TestComputeProgramChecks(t *testing.T) {
	c1 := course("C1", "Intro", "4")
	repeated := completed(c1, "Winter_1", 50)
	repeated.State = models.CourseStateComplete
	repeated.TimesRepeated = 3

	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "core", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("4"), Courses: []string{"C1"}},
		},
		Checks: []models.ProgramCheck{
			{Kind: models.CheckEnglishContent, MinCourses: 1},
			{Kind: models.CheckMaxRepetitions, Limit: 2},
			{Kind: models.CheckMinAverage, Threshold: dec("65")},
		},
	}
	status := &models.DegreeStatus{CourseStatuses: []models.CourseStatus{repeated}}

	result := NewEngine(nil).Compute(Input{Catalog: catalog, Courses: courseMap(c1), Status: status})

	require.Len(t, result.OverflowMsgs, 3)
	assert.Equal(t, "at least 1 English content courses are required, 0 completed", result.OverflowMsgs[0])
	assert.Equal(t, "course Intro (C1) was repeated 3 times, more than the allowed 2", result.OverflowMsgs[1])
	assert.Equal(t, "credit weighted average 50 is below the required 65", result.OverflowMsgs[2])
	assert.True(t, findRequirement(result, "core").Completed)
}

func TestComputeRuleEdgeCases(t *testing.T) {
	a1 := course("A1", "Algorithms", "2")
	a2 := course("A2", "Automata", "2")
	a3 := course("A3", "Architecture", "2")
	b1 := course("B1", "Bioinformatics", "2")
	f1 := course("F1", "Film", "4")
	z1 := course("Z1", "Exemption placeholder", "0")
	z2 := course("Z2", "Library tour", "0")

	cases := []struct {
		name     string
		catalog  *models.Catalog
		statuses []models.CourseStatus
		courses  map[string]models.Course
		check    func(t *testing.T, result *models.DegreeStatus)
	}{
		{
			name: "excess courses flow to the next course-count bank",
			catalog: &models.Catalog{
				CourseBanks: []models.CourseBank{
					{Name: "listA", Rule: models.Rule{Kind: models.RuleAccumulateCourses, NumCourses: 2}, Credit: credit("6"), Courses: []string{"A1", "A2", "A3"}},
					{Name: "listB", Rule: models.Rule{Kind: models.RuleAccumulateCourses, NumCourses: 2}, Credit: credit("2"), Courses: []string{"B1"}},
				},
				CreditOverflows: []models.CreditOverflow{{From: "listA", To: "listB"}},
			},
			statuses: []models.CourseStatus{
				completed(a1, "Winter_1", 80),
				completed(a2, "Winter_1", 80),
				completed(a3, "Spring_1", 80),
				completed(b1, "Spring_1", 80),
			},
			courses: courseMap(a1, a2, a3, b1),
			check: func(t *testing.T, result *models.DegreeStatus) {
				listA := findRequirement(result, "listA")
				assert.Equal(t, 2, listA.CourseCompleted)
				assert.True(t, listA.Completed)

				listB := findRequirement(result, "listB")
				require.NotNil(t, listB.CourseRequirement)
				assert.Equal(t, 2, *listB.CourseRequirement)
				assert.Equal(t, 2, listB.CourseCompleted)
				assert.True(t, listB.Completed)

				assert.Equal(t, []string{"1 courses were transferred from bank listA to bank listB"}, result.OverflowMsgs)
				assert.True(t, result.TotalCredit.Equal(dec("8")))
			},
		},
		{
			name: "wildcard bank is never complete",
			catalog: &models.Catalog{
				CourseBanks: []models.CourseBank{
					{Name: "wild", Rule: models.Rule{Kind: models.RuleWildcard}, Credit: credit("4")},
				},
			},
			statuses: []models.CourseStatus{completed(f1, "Winter_1", 90)},
			courses:  courseMap(f1),
			check: func(t *testing.T, result *models.DegreeStatus) {
				wild := findRequirement(result, "wild")
				assert.False(t, wild.Completed)
				assert.True(t, wild.CreditCompleted.IsZero())
				assert.Equal(t, 0, wild.CourseCompleted)
				require.NotNil(t, wild.CreditRequirement)
				assert.True(t, wild.CreditRequirement.Equal(dec("4")))
			},
		},
		{
			name: "elective skips zero credit entries without a semester",
			catalog: &models.Catalog{
				CourseBanks: []models.CourseBank{
					{Name: "free", Rule: models.Rule{Kind: models.RuleElective}, Credit: credit("4")},
				},
			},
			statuses: []models.CourseStatus{
				completed(f1, "Winter_1", 90),
				{Course: z1, State: models.CourseStateComplete, Grade: models.NumericGrade(90)},
				completed(z2, "Spring_1", 90),
			},
			courses: courseMap(f1, z1, z2),
			check: func(t *testing.T, result *models.DegreeStatus) {
				free := findRequirement(result, "free")
				assert.True(t, free.Completed)
				assert.Equal(t, 2, free.CourseCompleted)
				assert.True(t, free.CreditCompleted.Equal(dec("4")))

				placeholder := result.CourseStatuses[result.FindCourse("Z1")]
				assert.Nil(t, placeholder.Type)

				tour := result.CourseStatuses[result.FindCourse("Z2")]
				require.NotNil(t, tour.Type)
				assert.Equal(t, "free", *tour.Type)
				assert.True(t, result.TotalCredit.Equal(dec("4")))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := &models.DegreeStatus{CourseStatuses: tc.statuses}
			result := NewEngine(nil).Compute(Input{Catalog: tc.catalog, Courses: tc.courses, Status: status})
			tc.check(t, result)
		})
	}
}
