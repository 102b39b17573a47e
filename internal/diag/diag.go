// Package diag implements the batched, source-positioned diagnostics spec
// §7 describes for the analyzer/preprocessor error kinds (parse, lookup,
// type, preprocess). Grounded on the teacher's errorTok/warnTok
// convention (confucianzuoyuan-zcc/tokenize.go), generalized from a
// single fatal errorTok into a typed, batchable Diagnostic the analyzer
// can keep accumulating across nodes (spec §7: "type and lookup errors
// attach to the offending node and are batched; analysis continues where
// possible").
package diag

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/token"
)

// Kind classifies a Diagnostic per spec §7's error-kind taxonomy.
type Kind int

const (
	Parse Kind = iota
	Lookup
	TypeErr
	Preprocess
	Driver
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Lookup:
		return "lookup"
	case TypeErr:
		return "type"
	case Preprocess:
		return "preprocess"
	case Driver:
		return "driver"
	}
	return "unknown"
}

// Diagnostic is one reported problem, attached to a source position.
type Diagnostic struct {
	Kind Kind
	Pos  token.Position
	File string
	Msg  string
}

func (d Diagnostic) Error() string {
	if d.File == "" {
		return fmt.Sprintf("%d:%d: %s: %s", d.Pos.Line, d.Pos.Col, d.Kind, d.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Pos.Line, d.Pos.Col, d.Kind, d.Msg)
}

// Bag accumulates diagnostics across a traversal, per spec §7's "batched,
// analysis continues where possible" propagation rule. A preprocess error
// additionally aborts the rest of its preprocess block (the engine
// returns it as a plain Go error); the analyzer then records it here as a
// Preprocess diagnostic and carries on with the next statement.
type Bag struct {
	items []Diagnostic
}

// Add appends d to the bag.
func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

// Addf is a convenience wrapper building a Diagnostic from a format string.
func (b *Bag) Addf(kind Kind, file string, pos token.Position, format string, args ...any) {
	b.Add(Diagnostic{Kind: kind, File: file, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic was recorded.
func (b *Bag) HasErrors() bool { return len(b.items) > 0 }

// All returns every recorded diagnostic, in report order.
func (b *Bag) All() []Diagnostic { return b.items }
