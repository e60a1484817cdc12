package chain

import "github.com/pkg/errors"

// Validate checks the testable invariants of spec.md S8 item 4: the
// chain DAG is acyclic, and Parents/Children are mutually consistent
// (p is a parent of c iff c is a child of p). Callers building chains
// and chain nodes by hand (rather than through Plan) can use this as a
// self-check before handing them to the scheduler.
func Validate(chains []Chain, chainNodes []Node) error {
	if len(chains) != len(chainNodes) {
		return errors.Errorf("chain.Validate: len(chains)=%d != len(chainNodes)=%d", len(chains), len(chainNodes))
	}

	for c, node := range chainNodes {
		for _, p := range node.Parents {
			if p < 0 || p >= len(chainNodes) {
				return errors.Errorf("chain.Validate: chain %d has out-of-range parent %d", c, p)
			}
			if !contains(chainNodes[p].Children, c) {
				return errors.Errorf("chain.Validate: chain %d lists %d as a parent, but %d does not list %d as a child", c, p, p, c)
			}
		}
		for _, ch := range node.Children {
			if ch < 0 || ch >= len(chainNodes) {
				return errors.Errorf("chain.Validate: chain %d has out-of-range child %d", c, ch)
			}
			if !contains(chainNodes[ch].Parents, c) {
				return errors.Errorf("chain.Validate: chain %d lists %d as a child, but %d does not list %d as a parent", c, ch, ch, c)
			}
		}
	}

	return detectCycle(chainNodes)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// detectCycle runs a classic three-color DFS over the chain DAG.
func detectCycle(chainNodes []Node) error {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	color := make([]int, len(chainNodes))

	var visit func(c int) error
	visit = func(c int) error {
		switch color[c] {
		case done:
			return nil
		case inStack:
			return errors.Errorf("chain.Validate: cycle detected involving chain %d", c)
		}
		color[c] = inStack
		for _, child := range chainNodes[c].Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		color[c] = done
		return nil
	}

	for c := range chainNodes {
		if color[c] == unvisited {
			if err := visit(c); err != nil {
				return err
			}
		}
	}
	return nil
}
