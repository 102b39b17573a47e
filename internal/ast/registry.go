package ast

// Registry is the append-only back-reference table from stable integer
// index to live AST node described in spec §3/§9 ("AST-node registry"):
// pp code holds indices, never pointers, so a block reconstruction that
// replaces nodes doesn't invalidate references held by earlier-generated
// preprocessor code.
type Registry struct {
	nodes []*Node
}

// NewRegistry returns an empty registry. Index 0 is never issued so that a
// zero Node.Index reliably means "not yet registered".
func NewRegistry() *Registry {
	return &Registry{nodes: []*Node{nil}}
}

// Register assigns n a fresh registry index (idempotent: re-registering an
// already-indexed node is a no-op and returns its existing index).
func (r *Registry) Register(n *Node) int {
	if n.Index != 0 {
		return n.Index
	}
	n.Index = len(r.nodes)
	r.nodes = append(r.nodes, n)
	return n.Index
}

// Get returns the node at idx, or nil if idx is out of range or never
// registered.
func (r *Registry) Get(idx int) *Node {
	if idx <= 0 || idx >= len(r.nodes) {
		return nil
	}
	return r.nodes[idx]
}

// Len reports how many nodes have been registered (including the sentinel
// at index 0).
func (r *Registry) Len() int { return len(r.nodes) }
