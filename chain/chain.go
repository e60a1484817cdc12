// Package chain partitions an operator DAG into chains -- maximal linear
// runs of same-device operators -- and computes the chain-level DAG those
// chains induce. A chain, not an individual operator, is the unit the
// scheduler actually dispatches.
package chain

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/itso310/asyncnet/operator"
)

// Chain is an ordered, non-empty run of operator indices that share a
// device context and form a simple linear dependency chain: every
// non-head operator has exactly one parent (the previous operator in the
// chain) and every non-tail operator has exactly one child (the next
// operator in the chain).
type Chain struct {
	TaskID int
	Ops    []int
}

// Head returns the index of this chain's first operator.
func (c Chain) Head() int { return c.Ops[0] }

// Tail returns the index of this chain's last operator.
func (c Chain) Tail() int { return c.Ops[len(c.Ops)-1] }

// Node is a vertex of the chain-level DAG: the set of chains whose tails
// produce data this chain's head consumes (Parents), and the inverse
// (Children). Both are deduplicated and sorted by task id for
// determinism.
type Node struct {
	Parents  []int
	Children []int
}

// opGraph is the operator-level dependency graph resolved from Defs by
// matching Inputs against Outputs names.
type opGraph struct {
	parents  [][]int
	children [][]int
}

// BuildOpGraph resolves the operator-level DAG from defs' named
// Inputs/Outputs. defs must already be arranged in a topologically valid
// order (every
// operator's parents have strictly smaller indices) -- this is the
// "operator DAG" spec.md takes as a given external input; resolving it
// from named dependencies is this library's concrete way of obtaining
// one.
func BuildOpGraph(defs []operator.Def) (*opGraph, error) {
	producedBy := make(map[string]int, len(defs))
	for i, def := range defs {
		for _, out := range def.Outputs {
			if _, exists := producedBy[out]; exists {
				return nil, errors.Errorf("output %q produced by more than one operator", out)
			}
			producedBy[out] = i
		}
	}

	g := &opGraph{
		parents:  make([][]int, len(defs)),
		children: make([][]int, len(defs)),
	}
	for i, def := range defs {
		for _, in := range def.Inputs {
			parentIdx, ok := producedBy[in]
			if !ok {
				return nil, errors.Errorf("operator %q: input %q is not produced by any operator", def.Name, in)
			}
			if parentIdx >= i {
				return nil, errors.Errorf(
					"operator %q (index %d): input %q is produced by operator at index %d, which is not topologically before it",
					def.Name, i, in, parentIdx)
			}
			g.parents[i] = append(g.parents[i], parentIdx)
			g.children[parentIdx] = append(g.children[parentIdx], i)
		}
	}
	return g, nil
}

// Plan partitions nodes into chains and computes the chain DAG. defs must
// correspond index-for-index with nodes and already be in a
// topologically valid order.
//
// When inference is true, the inference-mode variant of spec.md S4.1 is
// used: a single chain containing every operator, in topological order,
// with no cross-chain synchronization needed.
//
// reportStats mirrors the net's resolved ReportStats flag: inner-chain
// operator events are only disabled when it is false, since prof_dag
// mode (S4.6) needs every operator's own event and timestamps, not just
// the chain's head and tail.
func Plan(defs []operator.Def, nodes []*operator.Node, inference bool, reportStats bool) ([]Chain, []Node, error) {
	if len(defs) != len(nodes) {
		return nil, nil, errors.Errorf("chain.Plan: len(defs)=%d != len(nodes)=%d", len(defs), len(nodes))
	}
	g, err := BuildOpGraph(defs)
	if err != nil {
		return nil, nil, err
	}

	var chains []Chain
	if inference {
		order, err := topoSort(g, len(nodes))
		if err != nil {
			return nil, nil, err
		}
		chains = []Chain{{TaskID: 0, Ops: order}}
	} else {
		chains = groupIntoChains(g, defs, nodes)
	}

	opToChain := make([]int, len(nodes))
	for ci, c := range chains {
		for _, opIdx := range c.Ops {
			opToChain[opIdx] = ci
		}
	}

	chainNodes := make([]Node, len(chains))
	for ci, c := range chains {
		parentSet := map[int]bool{}
		for _, parentOp := range g.parents[c.Head()] {
			parentSet[opToChain[parentOp]] = true
		}
		for pc := range parentSet {
			if pc == ci {
				continue
			}
			chainNodes[ci].Parents = append(chainNodes[ci].Parents, pc)
			chainNodes[pc].Children = append(chainNodes[pc].Children, ci)
		}
	}
	for ci := range chainNodes {
		sortAndDedup(&chainNodes[ci].Parents)
		sortAndDedup(&chainNodes[ci].Children)
	}

	if !reportStats {
		disableInnerChainEvents(chains, nodes)
	}

	return chains, chainNodes, nil
}

// disableInnerChainEvents clears, conceptually, the use of every
// non-head/non-tail operator's event within a chain -- only the head and
// tail events take part in cross-chain synchronization. Plan only calls
// this when reportStats is false; prof_dag mode needs every operator's
// event and timestamps, not just the chain's bookends. This just calls
// ResetEvent on inner ops so they start from a clean Initialized state
// that nothing outside the chain will ever consult.
func disableInnerChainEvents(chains []Chain, nodes []*operator.Node) {
	for _, c := range chains {
		if len(c.Ops) <= 2 {
			continue
		}
		for _, opIdx := range c.Ops[1 : len(c.Ops)-1] {
			nodes[opIdx].Op.ResetEvent()
		}
	}
}

func sortAndDedup(s *[]int) {
	if len(*s) == 0 {
		return
	}
	sort.Ints(*s)
	out := (*s)[:1]
	for _, v := range (*s)[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	*s = out
}

// groupIntoChains implements the maximal-linear-run grouping of spec.md
// S4.1: walk operators in (topological) index order, extending the
// currently open chain into the next operator only when the link between
// them is a simple 1:1 edge on the same device.
func groupIntoChains(g *opGraph, defs []operator.Def, nodes []*operator.Node) []Chain {
	var chains []Chain
	var current []int

	sameDevice := func(a, b int) bool {
		return defs[a].Device.Type == defs[b].Device.Type && defs[a].Device.DeviceID == defs[b].Device.DeviceID
	}

	flush := func() {
		if len(current) == 0 {
			return
		}
		chains = append(chains, Chain{TaskID: len(chains), Ops: current})
		current = nil
	}

	for i := range nodes {
		if len(current) > 0 {
			prev := current[len(current)-1]
			extends := len(g.parents[i]) == 1 && g.parents[i][0] == prev &&
				len(g.children[prev]) == 1 && g.children[prev][0] == i &&
				sameDevice(prev, i)
			if extends {
				current = append(current, i)
				continue
			}
			flush()
		}
		current = []int{i}
	}
	flush()
	return chains
}

// topoSort returns a deterministic topological order of n nodes from an
// opGraph, using Kahn's algorithm with a stable, index-ordered ready
// queue.
func topoSort(g *opGraph, n int) ([]int, error) {
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		indeg[i] = len(g.parents[i])
	}
	var ready []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, n)
	for len(ready) > 0 {
		// Always pop the smallest index to keep the order deterministic.
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range g.children[next] {
			indeg[child]--
			if indeg[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	if len(order) != n {
		return nil, errors.New("chain.Plan: operator graph has a cycle, cannot compute inference-mode order")
	}
	return order, nil
}
