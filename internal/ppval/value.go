// Package ppval implements the dynamic value and lexical environment the
// preprocessor engine (internal/preprocessor) evaluates pp fragments
// against (spec §4.E). The tagged Value + parent-linked Env pair is
// grounded on daios-ai-msg/interpreter.go's Value/ValueTag/Env, the
// strongest example in the retrieved pack of a dynamically typed runtime
// value paired with a lexical-chain environment.
package ppval

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/types"
)

// Tag discriminates the cases a Value may hold.
type Tag int

const (
	TagNil Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagNode   // a *ast.Node, e.g. a value `injectnode` appends
	TagType   // a types.Type, surfaced by `primtypes`/context introspection
	TagFunc   // a pp-defined callable (Go closure wrapping hygienize etc.)
	TagTable  // an ordered string-keyed table (pp environment scratch space)
)

// Func is a callable pp value. hygienize wraps one of these; native
// helpers like injectnode/staticassert are also represented this way so
// that unknown-identifier lookup (spec §4.E) can return them uniformly.
type Func func(args []Value) (Value, error)

// Value is the universal value carrier for pp execution.
type Value struct {
	Tag  Tag
	Bool bool
	Int  int64
	Flt  float64
	Str  string
	Node *ast.Node
	Typ  types.Type
	Fn   Func
	Tbl  *Table
}

// Table is an insertion-ordered string-keyed map, used for the pp
// environment's free-form variable scratch space and for table-shaped
// introspection values like `ast`/`aster`/`config`.
type Table struct {
	entries map[string]Value
	keys    []string
}

func NewTable() *Table { return &Table{entries: make(map[string]Value)} }

func (t *Table) Get(key string) (Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

func (t *Table) Set(key string, v Value) {
	if _, exists := t.entries[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
}

func (t *Table) Keys() []string { return t.keys }

// Constructors mirroring daios-ai-msg's Null/Bool/Int/Num/Str helpers.
var Nil = Value{Tag: TagNil}

func Bool(b bool) Value        { return Value{Tag: TagBool, Bool: b} }
func Int(n int64) Value        { return Value{Tag: TagInt, Int: n} }
func Float(f float64) Value    { return Value{Tag: TagFloat, Flt: f} }
func Str(s string) Value       { return Value{Tag: TagString, Str: s} }
func Node(n *ast.Node) Value   { return Value{Tag: TagNode, Node: n} }
func TypeVal(t types.Type) Value { return Value{Tag: TagType, Typ: t} }
func FuncVal(f Func) Value     { return Value{Tag: TagFunc, Fn: f} }
func TableVal(t *Table) Value  { return Value{Tag: TagTable, Tbl: t} }

// Truthy implements the language's truthiness rule: everything is truthy
// except nil and false (Lua-family convention, matching the teacher's
// source-language register — nelua inherits Lua truthiness).
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagNil:
		return false
	case TagBool:
		return v.Bool
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Tag {
	case TagNil:
		return "nil"
	case TagBool:
		return fmt.Sprintf("%v", v.Bool)
	case TagInt:
		return fmt.Sprintf("%d", v.Int)
	case TagFloat:
		return fmt.Sprintf("%g", v.Flt)
	case TagString:
		return v.Str
	case TagNode:
		return fmt.Sprintf("<node %s>", v.Node.Tag)
	case TagType:
		return fmt.Sprintf("<type %s>", v.Typ.String())
	case TagFunc:
		return "<function>"
	case TagTable:
		return "<table>"
	default:
		return "<unknown>"
	}
}

// Equal compares two pp values by value (nodes/functions/tables compare
// by identity, matching Lua-family reference-equality for non-primitives).
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNil:
		return true
	case TagBool:
		return a.Bool == b.Bool
	case TagInt:
		return a.Int == b.Int
	case TagFloat:
		return a.Flt == b.Flt
	case TagString:
		return a.Str == b.Str
	case TagNode:
		return a.Node == b.Node
	case TagType:
		return a.Typ == b.Typ || types.Equal(a.Typ, b.Typ)
	case TagFunc:
		return false // Go func values are not comparable
	case TagTable:
		return a.Tbl == b.Tbl
	}
	return false
}
