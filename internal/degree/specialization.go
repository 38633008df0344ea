package degree

import (
	"github.com/noah-isme/degree-planner-api/internal/models"
)

// DefaultSearchBudget caps the nodes visited by the specialization group search.
const DefaultSearchBudget = 200000

// groupSolution assigns completed courses to groups. groups lists the satisfied group indices in
// ascending order; assignment maps a course id to its group index.
type groupSolution struct {
	groups     []int
	assignment map[string]int
}

// groupSearch enumerates subsets of exactly target groups in index order and, per subset, backtracks
// over course to group assignments. The first fully satisfiable subset wins; otherwise the first
// assignment found with the most satisfied groups is kept.
type groupSearch struct {
	groups    []models.SpecializationGroup
	completed map[string]bool
	target    int
	budget    int
	nodes     int
	exhausted bool

	best      groupSolution
	bestScore int
	found     bool
}

func solveSpecializationGroups(sg models.SpecializationGroups, completed map[string]bool, budget int) (groupSolution, bool) {
	if budget <= 0 {
		budget = DefaultSearchBudget
	}
	target := sg.GroupsNumber
	if target > len(sg.Groups) {
		target = len(sg.Groups)
	}
	s := &groupSearch{
		groups:    sg.Groups,
		completed: completed,
		target:    target,
		budget:    budget,
		bestScore: -1,
		best:      groupSolution{assignment: map[string]int{}},
	}
	if target <= 0 {
		return s.best, false
	}
	s.chooseSubset(0, make([]int, 0, target))
	return s.best, s.exhausted
}

// chooseSubset walks combinations lazily; it stops once a subset is satisfied or the budget is spent.
func (s *groupSearch) chooseSubset(start int, chosen []int) bool {
	if s.found || s.exhausted {
		return true
	}
	if len(chosen) == s.target {
		return s.trySubset(chosen)
	}
	for i := start; i <= len(s.groups)-(s.target-len(chosen)); i++ {
		if s.chooseSubset(i+1, append(chosen, i)) {
			return true
		}
	}
	return false
}

// eligibleCourse is a completed course and the subset groups it may count toward.
type eligibleCourse struct {
	id         string
	candidates []int
}

func (s *groupSearch) trySubset(subset []int) bool {
	courses := s.eligibleCourses(subset)
	state := newGroupState(s.groups, subset)
	assignment := make([]int, len(courses))
	return s.backtrack(courses, 0, assignment, state)
}

func (s *groupSearch) eligibleCourses(subset []int) []eligibleCourse {
	var courses []eligibleCourse
	position := make(map[string]int)
	for _, g := range subset {
		for _, id := range groupMembers(s.groups[g]) {
			if !s.completed[id] {
				continue
			}
			if at, ok := position[id]; ok {
				if last := courses[at].candidates; last[len(last)-1] != g {
					courses[at].candidates = append(courses[at].candidates, g)
				}
				continue
			}
			position[id] = len(courses)
			courses = append(courses, eligibleCourse{id: id, candidates: []int{g}})
		}
	}
	return courses
}

func (s *groupSearch) backtrack(courses []eligibleCourse, i int, assignment []int, state *groupState) bool {
	s.nodes++
	if s.nodes > s.budget {
		s.exhausted = true
		return false
	}
	if i == len(courses) {
		satisfied := state.satisfied()
		if len(satisfied) > s.bestScore {
			s.bestScore = len(satisfied)
			s.best = groupSolution{groups: satisfied, assignment: make(map[string]int, len(courses))}
			for j, course := range courses {
				s.best.assignment[course.id] = assignment[j]
			}
		}
		if len(satisfied) == len(state.subset) {
			s.found = true
			return true
		}
		return false
	}

	// A course given to an already satisfied group is never better than giving it to an
	// unsatisfied candidate, so only the latter are explored when there are any.
	options := make([]int, 0, len(courses[i].candidates))
	for _, g := range courses[i].candidates {
		if !state.groupSatisfied(g) {
			options = append(options, g)
		}
	}
	if len(options) == 0 {
		options = courses[i].candidates[:1]
	}

	for _, g := range options {
		assignment[i] = g
		state.add(g, courses[i].id)
		if s.backtrack(courses, i+1, assignment, state) {
			return true
		}
		state.remove(g, courses[i].id)
		if s.exhausted {
			return false
		}
	}
	return false
}

// groupState tracks per group course counts and mandatory picks for the current partial assignment.
type groupState struct {
	groups    []models.SpecializationGroup
	subset    []int
	counts    map[int]int
	mandatory map[int][]int
}

func newGroupState(groups []models.SpecializationGroup, subset []int) *groupState {
	st := &groupState{
		groups:    groups,
		subset:    subset,
		counts:    make(map[int]int, len(subset)),
		mandatory: make(map[int][]int, len(subset)),
	}
	for _, g := range subset {
		st.mandatory[g] = make([]int, len(groups[g].Mandatory))
	}
	return st
}

func (st *groupState) add(g int, courseID string) {
	st.counts[g]++
	for k, options := range st.groups[g].Mandatory {
		if contains(options, courseID) {
			st.mandatory[g][k]++
		}
	}
}

func (st *groupState) remove(g int, courseID string) {
	st.counts[g]--
	for k, options := range st.groups[g].Mandatory {
		if contains(options, courseID) {
			st.mandatory[g][k]--
		}
	}
}

func (st *groupState) groupSatisfied(g int) bool {
	if st.counts[g] < st.groups[g].CoursesSum {
		return false
	}
	for _, hits := range st.mandatory[g] {
		if hits == 0 {
			return false
		}
	}
	return true
}

func (st *groupState) satisfied() []int {
	var done []int
	for _, g := range st.subset {
		if st.groupSatisfied(g) {
			done = append(done, g)
		}
	}
	return done
}

// groupMembers lists the group's course list followed by mandatory options not already listed.
func groupMembers(group models.SpecializationGroup) []string {
	seen := make(map[string]bool, len(group.CourseList))
	members := make([]string, 0, len(group.CourseList))
	for _, id := range group.CourseList {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	for _, options := range group.Mandatory {
		for _, id := range options {
			if !seen[id] {
				seen[id] = true
				members = append(members, id)
			}
		}
	}
	return members
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
