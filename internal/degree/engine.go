package degree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// Input is everything a computation needs. Status is mutated in place.
type Input struct {
	Catalog      *models.Catalog
	Courses      map[string]models.Course
	Status       *models.DegreeStatus
	MalagCourses []string
}

// Engine computes degree statuses. It holds no per-computation state and is safe to share; callers
// serialise computations per student.
type Engine struct {
	logger       *zap.Logger
	searchBudget int
}

// Option customises an Engine.
type Option func(*Engine)

// WithSearchBudget caps the specialization group search.
func WithSearchBudget(nodes int) Option {
	return func(e *Engine) {
		if nodes > 0 {
			e.searchBudget = nodes
		}
	}
}

// NewEngine constructs an Engine.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger, searchBudget: DefaultSearchBudget}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the state of one computation.
type run struct {
	engine      *Engine
	catalog     *models.Catalog
	courses     map[string]models.Course
	status      *models.DegreeStatus
	malag       map[string]bool
	substitutes substituteIndex
	ledger      *ledger
	total       decimal.Decimal
	msgs        []string
}

// Compute recomputes the degree status of in.Status against in.Catalog.
func (e *Engine) Compute(in Input) *models.DegreeStatus {
	if in.Status == nil {
		in.Status = &models.DegreeStatus{}
	}
	if in.Courses == nil {
		in.Courses = map[string]models.Course{}
	}
	r := &run{
		engine:  e,
		catalog: in.Catalog,
		courses: in.Courses,
		status:  in.Status,
		malag:   make(map[string]bool, len(in.MalagCourses)),
		ledger:  newLedger(),
		total:   decimal.Zero,
	}
	for _, id := range in.MalagCourses {
		r.malag[id] = true
	}

	r.preprocess()

	requirements := make([]models.Requirement, 0, len(r.catalog.CourseBanks))
	for _, name := range r.traversalOrder() {
		bank, _ := r.catalog.Bank(name)
		requirements = append(requirements, r.evaluateBank(bank))
	}

	r.finalize()
	r.postprocess()

	r.status.CourseBankRequirements = requirements
	r.status.OverflowMsgs = r.msgs
	if r.status.OverflowMsgs == nil {
		r.status.OverflowMsgs = []string{}
	}
	r.status.TotalCredit = r.total
	return r.status
}

// --- Preprocessing ---

func (r *run) preprocess() {
	statuses := r.status.CourseStatuses

	relevant := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		if !s.Irrelevant() {
			relevant[s.Course.ID] = true
		}
	}

	kept := make([]models.CourseStatus, 0, len(statuses))
	for _, s := range statuses {
		// stale placeholders from a previous run
		if !s.Modified && !s.Completed() && s.Semester == nil {
			continue
		}
		if s.Irrelevant() && relevant[s.Course.ID] {
			continue
		}
		if !s.Modified || s.Irrelevant() {
			s.ClearType()
		}
		s.SpecializationGroupName = nil
		s.AdditionalMsg = nil
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return models.SemesterOrder(kept[i].Semester) < models.SemesterOrder(kept[j].Semester)
	})
	r.status.CourseStatuses = kept

	r.catalog.BuildCourseToBank()
	for _, s := range kept {
		if s.Irrelevant() {
			delete(r.catalog.CourseToBank, s.Course.ID)
		}
	}

	r.substitutes = buildSubstituteIndex(r.catalog, kept)
}

func (r *run) traversalOrder() []string {
	order, err := FindTraversalOrder(r.catalog)
	if err == nil {
		return order
	}
	r.engine.logger.Warn("credit overflow graph is invalid, using catalog bank order",
		zap.String("catalog_id", r.catalog.ID), zap.Error(err))
	order = make([]string, 0, len(r.catalog.CourseBanks))
	seen := make(map[string]bool, len(r.catalog.CourseBanks))
	for _, bank := range r.catalog.CourseBanks {
		if !seen[bank.Name] {
			seen[bank.Name] = true
			order = append(order, bank.Name)
		}
	}
	return order
}

// --- Main pass ---

// evaluateBank drains upstream overflow into the bank, applies its rule and reconciles the result
// against the bank's credit requirement.
func (r *run) evaluateBank(bank models.CourseBank) models.Requirement {
	in, drained := r.ledger.drain(r.catalog, bank)
	r.msgs = append(r.msgs, drained...)

	if !hasCreditTarget(bank) {
		if next, ok := nextCreditBank(r.catalog, bank.Name); ok {
			r.msgs = append(r.msgs, fmt.Sprintf(msgNoCreditTarget, bank.Name, next))
		} else {
			r.msgs = append(r.msgs, fmt.Sprintf(msgNoCreditTargetTotal, bank.Name))
		}
	}

	handler := newBankRuleHandler(r, bank.Name)
	req := models.Requirement{Name: bank.Name, Type: bank.Rule.Name()}
	target := bank.Credit
	creditGated := true

	var sum decimal.Decimal
	var count int
	completed := true

	switch bank.Rule.Kind {
	case models.RuleAll:
		var required decimal.Decimal
		sum, count, required, completed = handler.all()
		target = &required
		creditGated = false
	case models.RuleAccumulateCredit:
		sum, count = handler.accumulateCredit()
	case models.RuleAccumulateCourses:
		sum, count = handler.accumulateCourses()
		count += in.courses
		num := bank.Rule.NumCourses
		if count > num {
			r.ledger.addCoursesOverflow(bank.Name, count-num)
			count = num
		}
		completed = count >= num
		req.CourseRequirement = &num
	case models.RuleMalag:
		sum, count = handler.malag()
	case models.RuleSport:
		sum, count = handler.sport()
	case models.RuleElective:
		sum, count = handler.elective()
	case models.RuleChains:
		var names []string
		sum, count, names, completed = handler.chains(bank.Rule.Chains)
		if completed {
			msg := fmt.Sprintf(msgChainDone, strings.Join(names, ", "))
			req.Message = &msg
		}
	case models.RuleSpecializationGroups:
		groups := models.SpecializationGroups{}
		if bank.Rule.SpecializationGroups != nil {
			groups = *bank.Rule.SpecializationGroups
		}
		var names []string
		sum, _, names = handler.specializationGroups(groups)
		count = len(names)
		num := groups.GroupsNumber
		completed = count >= num
		req.CourseRequirement = &num
		if len(names) > 0 {
			msg := fmt.Sprintf(msgGroupsDone, strings.Join(names, ", "))
			req.Message = &msg
		}
	case models.RuleWildcard:
		completed = false
	default:
		r.engine.logger.Warn("unknown rule kind", zap.String("bank", bank.Name), zap.String("kind", string(bank.Rule.Kind)))
		completed = false
	}

	sum = sum.Add(in.credit)

	if target != nil {
		required := target.Add(in.missing)
		if sum.GreaterThan(required) {
			r.ledger.addCreditOverflow(bank.Name, sum.Sub(required))
			sum = required
		}
		r.total = r.total.Add(sum)
		if creditGated {
			completed = completed && sum.GreaterThanOrEqual(required)
		} else if in.missing.IsPositive() {
			completed = completed && sum.Add(handler.missingCredit).GreaterThanOrEqual(required)
		}
		req.CreditRequirement = &required
	} else {
		r.ledger.addCreditOverflow(bank.Name, sum)
		r.ledger.addMissingCredit(bank.Name, in.missing)
	}
	r.ledger.addMissingCredit(bank.Name, handler.missingCredit)

	req.CreditCompleted = sum
	req.CourseCompleted = count
	req.Completed = completed
	return req
}

// --- Finalization ---

func (r *run) finalize() {
	leftovers := r.ledger.leftoverCredit(r.catalog)
	if leftovers.IsPositive() {
		r.total = r.total.Add(leftovers)
		r.msgs = append(r.msgs, fmt.Sprintf(msgLeftovers, leftovers.String()))
	}
	for _, bank := range r.catalog.CourseBanks {
		if missing := r.ledger.missingCredit[bank.Name]; missing.IsPositive() {
			r.msgs = append(r.msgs, fmt.Sprintf(msgMissingLeftover, missing.String(), bank.Name))
		}
	}

	// Policy point pending review with the faculty: every completed course no bank claimed still
	// counts toward the total credit.
	for _, s := range r.status.CourseStatuses {
		if s.Type == nil && s.Completed() {
			r.total = r.total.Add(s.Course.Credit)
		}
	}
}
