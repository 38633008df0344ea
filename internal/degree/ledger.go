package degree

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// ledger carries what banks hand to each other along overflow edges. The three kinds are independent:
// unused credit, credit missing because of low-credit replacements, and completed courses beyond an
// ACCUMULATE_COURSES target.
type ledger struct {
	creditOverflow  map[string]decimal.Decimal
	missingCredit   map[string]decimal.Decimal
	coursesOverflow map[string]int
}

func newLedger() *ledger {
	return &ledger{
		creditOverflow:  make(map[string]decimal.Decimal),
		missingCredit:   make(map[string]decimal.Decimal),
		coursesOverflow: make(map[string]int),
	}
}

// incoming is what a bank drained from upstream before evaluation.
type incoming struct {
	credit  decimal.Decimal
	missing decimal.Decimal
	courses int
}

func (l *ledger) addCreditOverflow(bank string, credit decimal.Decimal) {
	if !credit.IsPositive() {
		return
	}
	l.creditOverflow[bank] = l.creditOverflow[bank].Add(credit)
}

func (l *ledger) addMissingCredit(bank string, credit decimal.Decimal) {
	if !credit.IsPositive() {
		return
	}
	l.missingCredit[bank] = l.missingCredit[bank].Add(credit)
}

func (l *ledger) addCoursesOverflow(bank string, courses int) {
	if courses <= 0 {
		return
	}
	l.coursesOverflow[bank] += courses
}

// drain moves everything destined for bank out of its upstream entries and returns the audit
// messages in edge order.
func (l *ledger) drain(catalog *models.Catalog, bank models.CourseBank) (incoming, []string) {
	var in incoming
	var msgs []string
	for _, edge := range catalog.CreditOverflows {
		if edge.To != bank.Name {
			continue
		}
		source, _ := catalog.Bank(edge.From)

		if credit := l.creditOverflow[edge.From]; credit.IsPositive() {
			in.credit = in.credit.Add(credit)
			l.creditOverflow[edge.From] = decimal.Zero
			// a bank without a target already announced where its credit goes
			if hasCreditTarget(source) {
				msgs = append(msgs, fmt.Sprintf(msgCreditOverflow, credit.String(), edge.From, bank.Name))
			}
		}

		if missing := l.missingCredit[edge.From]; missing.IsPositive() {
			in.missing = in.missing.Add(missing)
			l.missingCredit[edge.From] = decimal.Zero
			msgs = append(msgs, fmt.Sprintf(msgMissingCredit, missing.String(), edge.From, bank.Name))
		}

		if bank.Rule.Kind == models.RuleAccumulateCourses {
			if courses := l.coursesOverflow[edge.From]; courses > 0 {
				in.courses += courses
				l.coursesOverflow[edge.From] = 0
				msgs = append(msgs, fmt.Sprintf(msgCoursesOverflow, courses, edge.From, bank.Name))
			}
		}
	}
	return in, msgs
}

// leftoverCredit sums unclaimed credit overflow in catalog bank order.
func (l *ledger) leftoverCredit(catalog *models.Catalog) decimal.Decimal {
	total := decimal.Zero
	for _, bank := range catalog.CourseBanks {
		total = total.Add(l.creditOverflow[bank.Name])
	}
	return total
}
