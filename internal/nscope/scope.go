// Package nscope implements the symbol & scope graph from spec §3/§4.B:
// lexical scopes with parent links, symbol declaration/lookup, and a
// checkpoint facility used by the preprocessor's `hygienize` (spec §4.E).
//
// The shape is lifted directly from the teacher's Scope/Obj pair
// (confucianzuoyuan-zcc/obj.go), generalized from a single C block-scope
// (vars + tags) to the spec's named-symbol model and extended with the
// checkpoint/revision stack spec §9 calls for.
package nscope

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/types"
)

// Symbol is a declared name: its type (possibly still unknown while
// inference converges), an optional compile-time constant value, whether
// it denotes an addressable storage location, and the node it was
// declared at (spec §3).
type Symbol struct {
	Name     string
	Type     types.Type // nil until inference resolves it
	Value    any        // compile-time constant, if any
	LValue   bool
	DeclNode *ast.Node
}

// revision is one entry in a scope's shadow stack: the name inserted and
// the value that was shadowed (nil if the name was previously absent).
// Restoring to a checkpoint truncates this stack.
type revision struct {
	name     string
	hadPrior bool
	prior    *Symbol
}

// Scope is a named lexical environment. Scopes form a stack during
// traversal (via Push/child construction); the root scope is reused for
// the whole translation unit (spec §3).
type Scope struct {
	parent *Scope
	name   string
	table  map[string]*Symbol
	log    []revision
}

// NewRoot creates the translation unit's root scope (no parent).
func NewRoot() *Scope { return &Scope{name: "<root>", table: make(map[string]*Symbol)} }

// Push creates a child scope bound to the block it will govern, per
// spec §3's "Scopes form a stack during traversal".
func (s *Scope) Push(name string) *Scope {
	return &Scope{parent: s, name: name, table: make(map[string]*Symbol)}
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// ErrDuplicate is returned by Declare when name already exists at this
// level with an incompatible type (spec §4.B).
type ErrDuplicate struct {
	Name string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate declaration of %q in this scope", e.Name)
}

// Declare inserts name -> sym into s. If name already exists at this exact
// level: redeclaring with an Equal type is allowed (idempotent re-entry,
// e.g. a preprocessor re-running the same block); any other existing
// symbol is a duplicate-declaration error (spec §4.B failure mode).
func (s *Scope) Declare(name string, sym *Symbol) error {
	if existing, ok := s.table[name]; ok {
		if existing.Type != nil && sym.Type != nil && types.Equal(existing.Type, sym.Type) {
			return nil
		}
		if existing.Type == nil || sym.Type == nil {
			// one side still unresolved: allow refinement in place.
			s.table[name] = sym
			s.log = append(s.log, revision{name: name, hadPrior: true, prior: existing})
			return nil
		}
		return &ErrDuplicate{Name: name}
	}
	s.table[name] = sym
	s.log = append(s.log, revision{name: name, hadPrior: false})
	return nil
}

// Lookup walks the parent chain starting at s, returning (symbol, true)
// on the first match, or (nil, false) on a miss — spec §4.B leaves it to
// the caller whether a miss is an error.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.table[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal looks up name only in s itself, not its ancestors.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.table[name]
	return sym, ok
}

// Checkpoint is an opaque marker produced by MakeCheckpoint; restoring it
// undoes every Declare performed after it was taken, without destroying
// the scope (spec §3/§4.B/GLOSSARY).
type Checkpoint struct {
	scope *Scope
	mark  int
}

// MakeCheckpoint captures s's current revision count.
func (s *Scope) MakeCheckpoint() Checkpoint {
	return Checkpoint{scope: s, mark: len(s.log)}
}

// Restore undoes every Declare performed on cp's scope since the
// checkpoint was taken. Restoring a checkpoint more than once, or out of
// order, is safe: entries are only ever truncated from the tail.
func (cp Checkpoint) Restore() {
	s := cp.scope
	for len(s.log) > cp.mark {
		last := s.log[len(s.log)-1]
		s.log = s.log[:len(s.log)-1]
		if last.hadPrior {
			s.table[last.name] = last.prior
		} else {
			delete(s.table, last.name)
		}
	}
}

// Names returns the symbol names currently visible at this exact level,
// in declaration order. Used by diagnostics and --print-analyzed-ast.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.table))
	seen := make(map[string]bool, len(s.table))
	for _, r := range s.log {
		if s.table[r.name] != nil && !seen[r.name] {
			names = append(names, r.name)
			seen[r.name] = true
		}
	}
	return names
}
