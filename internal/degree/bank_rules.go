package degree

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// bankRuleHandler evaluates one bank's rule against the run's course statuses.
type bankRuleHandler struct {
	run  *run
	bank string
	// credit the bank's substitutes fall short of the courses they replace
	missingCredit decimal.Decimal
}

func newBankRuleHandler(r *run, bank string) *bankRuleHandler {
	return &bankRuleHandler{run: r, bank: bank, missingCredit: decimal.Zero}
}

// iterateCourseList marks every student course matching the bank's course list with the bank name.
// It returns the credit and count of completed matches and the required id to status index mapping.
func (h *bankRuleHandler) iterateCourseList() (decimal.Decimal, int, map[string]int) {
	sum := decimal.Zero
	count := 0
	matches := make(map[string]int)
	used := make(map[int]bool)

	for _, requiredID := range h.run.catalog.CourseList(h.bank) {
		m, ok := h.run.resolveCourse(requiredID, h.bank, used)
		if !ok {
			continue
		}
		used[m.index] = true
		matches[requiredID] = m.index
		status := &h.run.status.CourseStatuses[m.index]
		status.SetType(h.bank)
		if m.substitute {
			h.missingCredit = h.missingCredit.Add(h.run.recordSubstitute(status, requiredID))
		}
		if status.Completed() {
			sum = sum.Add(status.Course.Credit)
			count++
		}
	}
	return sum, count, matches
}

// all requires every listed course. Missing ones get a NOT_COMPLETE placeholder so the bank lists
// them. The credit requirement is the catalog credit of the whole list.
func (h *bankRuleHandler) all() (sum decimal.Decimal, count int, required decimal.Decimal, done bool) {
	sum, count, matches := h.iterateCourseList()
	required = decimal.Zero
	done = true
	for _, requiredID := range h.run.catalog.CourseList(h.bank) {
		course := h.run.lookupCourse(requiredID)
		required = required.Add(course.Credit)

		idx, ok := matches[requiredID]
		if !ok {
			done = false
			placeholder := models.CourseStatus{Course: course, State: models.CourseStateNotComplete}
			placeholder.SetType(h.bank)
			h.run.status.CourseStatuses = append(h.run.status.CourseStatuses, placeholder)
			continue
		}
		if !h.run.status.CourseStatuses[idx].Completed() {
			done = false
		}
	}
	return sum, count, required, done
}

func (h *bankRuleHandler) accumulateCredit() (decimal.Decimal, int) {
	sum, count, _ := h.iterateCourseList()
	return sum, count
}

func (h *bankRuleHandler) accumulateCourses() (decimal.Decimal, int) {
	sum, count, _ := h.iterateCourseList()
	return sum, count
}

// malag matches by tag, by the externally supplied Malag list or by id prefix.
func (h *bankRuleHandler) malag() (decimal.Decimal, int) {
	return h.sweepMatching(func(course models.Course) bool {
		return course.HasTag(models.TagMalag) ||
			h.run.malag[course.ID] ||
			strings.HasPrefix(course.ID, models.MalagCoursePrefix)
	})
}

// sport matches by tag or by id prefix.
func (h *bankRuleHandler) sport() (decimal.Decimal, int) {
	return h.sweepMatching(func(course models.Course) bool {
		return course.HasTag(models.TagSport) || strings.HasPrefix(course.ID, models.SportCoursePrefix)
	})
}

// sweepMatching assigns unowned courses accepted by isMember. A manual pin to this bank wins over
// the test.
func (h *bankRuleHandler) sweepMatching(isMember func(models.Course) bool) (decimal.Decimal, int) {
	sum := decimal.Zero
	count := 0
	statuses := h.run.status.CourseStatuses
	for i := range statuses {
		status := &statuses[i]
		pinned := status.Modified && status.AssignedTo(h.bank)
		if !pinned {
			if status.Type != nil || status.Irrelevant() || h.run.claimedElsewhere(status.Course.ID, h.bank) {
				continue
			}
			if !isMember(h.run.lookupTags(status.Course)) {
				continue
			}
		}
		status.SetType(h.bank)
		if status.Completed() {
			sum = sum.Add(status.Course.Credit)
			count++
		}
	}
	return sum, count
}

// elective takes every completed course nobody claimed. Zero credit entries without a semester are
// placeholders, not attempts.
func (h *bankRuleHandler) elective() (decimal.Decimal, int) {
	sum := decimal.Zero
	count := 0
	statuses := h.run.status.CourseStatuses
	for i := range statuses {
		status := &statuses[i]
		if !status.Completed() || !status.ValidForBank(h.bank) {
			continue
		}
		if status.Type == nil && h.run.claimedElsewhere(status.Course.ID, h.bank) {
			continue
		}
		if status.Course.Credit.IsZero() && status.Semester == nil {
			continue
		}
		status.SetType(h.bank)
		sum = sum.Add(status.Course.Credit)
		count++
	}
	return sum, count
}

// chains is satisfied by the first chain, in catalog order, whose courses are all completed. It
// returns the names of that chain's courses.
func (h *bankRuleHandler) chains(chains [][]string) (decimal.Decimal, int, []string, bool) {
	sum, count, matches := h.iterateCourseList()
	for _, chain := range chains {
		names := make([]string, 0, len(chain))
		complete := true
		for _, requiredID := range chain {
			idx, ok := matches[requiredID]
			if !ok || !h.run.status.CourseStatuses[idx].Completed() {
				complete = false
				break
			}
			names = append(names, h.run.status.CourseStatuses[idx].Course.Name)
		}
		if complete {
			return sum, count, names, true
		}
	}
	return sum, count, nil, false
}

// specializationGroups assigns completed courses to competing groups and tags each assigned course
// with its group. It returns the completed group names in catalog order.
func (h *bankRuleHandler) specializationGroups(groups models.SpecializationGroups) (decimal.Decimal, int, []string) {
	sum, count, matches := h.iterateCourseList()

	completed := make(map[string]bool, len(matches))
	for requiredID, idx := range matches {
		if h.run.status.CourseStatuses[idx].Completed() {
			completed[requiredID] = true
		}
	}

	solution, exhausted := solveSpecializationGroups(groups, completed, h.run.engine.searchBudget)
	if exhausted {
		h.run.engine.logger.Warn("specialization group search budget exhausted",
			zap.String("bank", h.bank), zap.Int("budget", h.run.engine.searchBudget))
	}

	for requiredID, groupIdx := range solution.assignment {
		idx := matches[requiredID]
		h.run.status.CourseStatuses[idx].SetSpecializationGroup(groups.Groups[groupIdx].Name)
	}
	names := make([]string, 0, len(solution.groups))
	for _, groupIdx := range solution.groups {
		names = append(names, groups.Groups[groupIdx].Name)
	}
	return sum, count, names
}

// claimedElsewhere reports whether the catalog gives the course, or the course it substitutes, to
// another bank.
func (r *run) claimedElsewhere(courseID, bank string) bool {
	if owner, ok := r.catalog.CourseToBank[courseID]; ok && owner != bank {
		return true
	}
	for original := range r.substitutes[courseID] {
		if owner, ok := r.catalog.CourseToBank[original]; ok && owner != bank {
			return true
		}
	}
	return false
}
