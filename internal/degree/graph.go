package degree

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

var (
	// ErrUnknownBank is returned when a credit overflow references a bank the catalog does not define.
	ErrUnknownBank = errors.New("credit overflow references unknown bank")
	// ErrDuplicateBank is returned when two banks share a name.
	ErrDuplicateBank = errors.New("duplicate bank name")
)

// CycleError reports a credit overflow cycle through Bank.
type CycleError struct {
	Bank string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("credit overflow cycle through bank %q", e.Bank)
}

// CreditGraph is the credit-transfer graph of a catalog. Node ids are bank positions in the catalog.
type CreditGraph struct {
	g        *simple.DirectedGraph
	ids      map[string]int64
	names    []string
	selfLoop string
}

// BuildGraph builds the credit-transfer graph from the catalog's banks and overflow edges.
func BuildGraph(catalog *models.Catalog) (*CreditGraph, error) {
	cg := &CreditGraph{
		g:     simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(catalog.CourseBanks)),
		names: make([]string, 0, len(catalog.CourseBanks)),
	}
	for i, bank := range catalog.CourseBanks {
		if _, dup := cg.ids[bank.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBank, bank.Name)
		}
		id := int64(i)
		cg.ids[bank.Name] = id
		cg.names = append(cg.names, bank.Name)
		cg.g.AddNode(simple.Node(id))
	}
	for _, edge := range catalog.CreditOverflows {
		from, ok := cg.ids[edge.From]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBank, edge.From)
		}
		to, ok := cg.ids[edge.To]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBank, edge.To)
		}
		// simple graphs reject self edges, remember it as a cycle of length one.
		if from == to {
			if cg.selfLoop == "" {
				cg.selfLoop = edge.From
			}
			continue
		}
		cg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}
	return cg, nil
}

// Order returns bank names in topological order. Ties keep catalog order.
func (cg *CreditGraph) Order() ([]string, error) {
	if cg.selfLoop != "" {
		return nil, &CycleError{Bank: cg.selfLoop}
	}
	sorted, err := topo.SortStabilized(cg.g, byID)
	if err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			return nil, &CycleError{Bank: cg.cycleBank(unorderable)}
		}
		return nil, err
	}
	order := make([]string, 0, len(sorted))
	for _, node := range sorted {
		order = append(order, cg.names[node.ID()])
	}
	return order, nil
}

func (cg *CreditGraph) cycleBank(components topo.Unorderable) string {
	for _, component := range components {
		if len(component) == 0 {
			continue
		}
		nodes := append([]graph.Node(nil), component...)
		byID(nodes)
		return cg.names[nodes[0].ID()]
	}
	return ""
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// FindTraversalOrder returns the catalog's banks so that a bank receiving overflow comes after every
// bank it receives from.
func FindTraversalOrder(catalog *models.Catalog) ([]string, error) {
	cg, err := BuildGraph(catalog)
	if err != nil {
		return nil, err
	}
	return cg.Order()
}

// ValidateAcyclic checks the catalog's overflow edges form a DAG over known banks.
func ValidateAcyclic(catalog *models.Catalog) error {
	_, err := FindTraversalOrder(catalog)
	return err
}

// hasCreditTarget reports whether the bank ends up with a credit requirement. ALL banks derive one
// from their course list.
func hasCreditTarget(bank models.CourseBank) bool {
	return bank.Credit != nil || bank.Rule.Kind == models.RuleAll
}

// nextCreditBank finds the nearest downstream bank with a credit requirement, following edges in
// declared order.
func nextCreditBank(catalog *models.Catalog, from string) (string, bool) {
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range catalog.CreditOverflows {
			if edge.From != current || visited[edge.To] {
				continue
			}
			visited[edge.To] = true
			if bank, ok := catalog.Bank(edge.To); ok && hasCreditTarget(bank) {
				return edge.To, true
			}
			queue = append(queue, edge.To)
		}
	}
	return "", false
}
