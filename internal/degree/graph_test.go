package degree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

func banks(names ...string) []models.CourseBank {
	out := make([]models.CourseBank, 0, len(names))
	for _, name := range names {
		out = append(out, models.CourseBank{Name: name, Rule: models.Rule{Kind: models.RuleAccumulateCredit}})
	}
	return out
}

func TestFindTraversalOrderChain(t *testing.T) {
	catalog := &models.Catalog{
		CourseBanks: banks("electives", "core", "math"),
		CreditOverflows: []models.CreditOverflow{
			{From: "core", To: "math"},
			{From: "math", To: "electives"},
		},
	}

	order, err := FindTraversalOrder(catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "math", "electives"}, order)
}

func TestFindTraversalOrderKeepsEveryBank(t *testing.T) {
	catalog := &models.Catalog{
		CourseBanks:     banks("a", "b", "c"),
		CreditOverflows: []models.CreditOverflow{{From: "c", To: "a"}},
	}

	order, err := FindTraversalOrder(catalog)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, order)

	position := map[string]int{}
	for i, name := range order {
		position[name] = i
	}
	assert.Less(t, position["c"], position["a"])
}

func TestFindTraversalOrderCycle(t *testing.T) {
	catalog := &models.Catalog{
		CourseBanks: banks("a", "b", "c"),
		CreditOverflows: []models.CreditOverflow{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}

	_, err := FindTraversalOrder(catalog)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "a", cycle.Bank)
}

func TestFindTraversalOrderSelfLoop(t *testing.T) {
	catalog := &models.Catalog{
		CourseBanks:     banks("a", "b"),
		CreditOverflows: []models.CreditOverflow{{From: "b", To: "b"}},
	}

	err := ValidateAcyclic(catalog)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "b", cycle.Bank)
}

func TestBuildGraphRejectsUnknownAndDuplicateBanks(t *testing.T) {
	_, err := BuildGraph(&models.Catalog{
		CourseBanks:     banks("a"),
		CreditOverflows: []models.CreditOverflow{{From: "a", To: "missing"}},
	})
	assert.ErrorIs(t, err, ErrUnknownBank)

	_, err = BuildGraph(&models.Catalog{CourseBanks: banks("a", "a")})
	assert.ErrorIs(t, err, ErrDuplicateBank)
}

func TestNextCreditBankSkipsBanksWithoutTarget(t *testing.T) {
	catalog := &models.Catalog{
		CourseBanks: []models.CourseBank{
			{Name: "free", Rule: models.Rule{Kind: models.RuleElective}},
			{Name: "relay", Rule: models.Rule{Kind: models.RuleElective}},
			{Name: "electives", Rule: models.Rule{Kind: models.RuleAccumulateCredit}, Credit: credit("10")},
		},
		CreditOverflows: []models.CreditOverflow{
			{From: "free", To: "relay"},
			{From: "relay", To: "electives"},
		},
	}

	next, ok := nextCreditBank(catalog, "free")
	require.True(t, ok)
	assert.Equal(t, "electives", next)

	_, ok = nextCreditBank(catalog, "electives")
	assert.False(t, ok)
}
