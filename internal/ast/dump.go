package ast

import (
	"fmt"
	"sort"
	"strings"
)

// Dump renders n in the brace/tag notation spec §8's end-to-end scenarios
// show, e.g. `Call{ {String{"hello world", nil}}, Id{"print"} }`. List
// nodes print as a bare `{...}` (no tag prefix); String, Number, Bool and
// Id leaves print compactly as `Tag{payload}`; every other tag prints as
// `Tag{ child, child, ... }`. A node's type attribute, once set, is
// appended as a trailing `type=...` field; before analysis, String,
// Number and Bool literals carry a trailing `nil` in that slot instead
// (as in `String{"hello world", nil}`), while Id carries nothing.
func Dump(n *Node) string {
	var sb strings.Builder
	dump(&sb, n)
	return sb.String()
}

func dump(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	if n.Tag == List {
		if len(n.Children) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{")
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			dump(sb, c)
		}
		sb.WriteString("}")
		return
	}

	leaf := n.Tag == StringLit || n.Tag == NumberLit || n.Tag == Id || n.Tag == BoolLit
	open, close := "{ ", " }"
	if leaf {
		open, close = "{", "}"
	}
	sb.WriteString(n.Tag.String())
	sb.WriteString(open)
	wrote := false
	switch n.Tag {
	case StringLit:
		fmt.Fprintf(sb, "%q", n.Str)
		wrote = true
	case NumberLit:
		sb.WriteString(n.Str)
		if n.Suffix != "" {
			sb.WriteString("_" + n.Suffix)
		}
		wrote = true
	case Id:
		fmt.Fprintf(sb, "%q", n.Str)
		wrote = true
	case BoolLit:
		fmt.Fprintf(sb, "%v", n.Bool)
		wrote = true
	}
	for _, c := range n.Children {
		if wrote {
			sb.WriteString(", ")
		}
		dump(sb, c)
		wrote = true
	}
	if typ, ok := n.Attr(AttrType); ok {
		if wrote {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "type=%v", typ)
	} else if n.Tag == StringLit || n.Tag == NumberLit || n.Tag == BoolLit {
		sb.WriteString(", nil")
	}
	sb.WriteString(close)
}

// DumpScopeNames renders a sorted, comma-joined symbol-name list; used by
// --debug-scope-resolve.
func DumpScopeNames(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
