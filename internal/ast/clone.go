package ast

// Clone performs a structural deep copy of n, as required by spec §4.A:
// the preprocessor clones pre-analyzed templates before injecting them
// into a regenerated block, and each copy must get its own registry
// identity rather than aliasing the original's.
//
// Attributes are shallow-copied: attribute values (types, constant
// values) are shared with the source node, since those are themselves
// immutable once assigned by the analyzer.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		Tag:    n.Tag,
		Pos:    n.Pos,
		Str:    n.Str,
		Suffix: n.Suffix,
		Bool:   n.Bool,
	}
	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			clone.Children[i] = Clone(c)
		}
	}
	if n.Attrs != nil {
		clone.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			clone.Attrs[k] = v
		}
	}
	// clone.Index stays 0: the caller registers the clone in whatever
	// Registry is live for the reconstruction, giving it a fresh identity.
	return clone
}
