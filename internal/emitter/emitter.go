// Package emitter implements the C emitter core from spec §4.F: three
// output regions (directives, declarations, definitions), each
// deduplicated by a string key, assembled into one translation unit at
// the end. Grounded on confucianzuoyuan-zcc/codegen.go's emission style
// (a single output buffer, a printlnToFile helper that appends formatted
// lines) generalized from one flat buffer into the three ordered,
// dedup-aware regions the spec's C backend needs instead of the
// teacher's x86-64 assembly backend.
package emitter

import (
	"fmt"
	"sort"
	"strings"
)

// Region names one of the three emission buckets a translation unit is
// assembled from, in the order spec §4.F lays them out.
type Region int

const (
	Directives Region = iota
	Declarations
	Definitions
	numRegions
)

// Emitter accumulates C source text across the three regions, tracking
// which include files and builtin helpers have already been requested so
// repeated require/codegen passes over the same symbol never duplicate
// output (spec §4.F: "ensure_include and ensure_builtin are idempotent").
type Emitter struct {
	lines       [numRegions][]string
	seenKeys    map[string]bool // dedup key -> emitted, across all regions
	includes    map[string]bool
	indent      int
}

// New returns an empty Emitter.
func New() *Emitter {
	return &Emitter{seenKeys: make(map[string]bool), includes: make(map[string]bool)}
}

// Emit appends a formatted line to region; lines in Definitions are
// indented to the emitter's current nesting depth. Mirrors the teacher's
// printlnToFile, but keyed to one of three regions rather than one
// global buffer.
func (e *Emitter) Emit(region Region, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if region == Definitions {
		line = strings.Repeat("  ", e.indent) + line
	}
	e.lines[region] = append(e.lines[region], line)
}

// Indent and Dedent adjust the nesting depth used by subsequent Emit
// calls into Definitions (function bodies, blocks).
func (e *Emitter) Indent() { e.indent++ }
func (e *Emitter) Dedent() {
	if e.indent > 0 {
		e.indent--
	}
}

// EnsureInclude emits `#include <header>` into Directives exactly once.
func (e *Emitter) EnsureInclude(header string) {
	if e.includes[header] {
		return
	}
	e.includes[header] = true
	e.Emit(Directives, "#include <%s>", header)
}

// EnsureBuiltin emits body into Declarations keyed by name, skipping the
// call entirely if name was already ensured — the dedup rule spec §4.G
// relies on so a helper required by several call sites is defined once.
func (e *Emitter) EnsureBuiltin(name, body string) {
	key := "builtin:" + name
	if e.seenKeys[key] {
		return
	}
	e.seenKeys[key] = true
	for _, ln := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		e.Emit(Declarations, "%s", ln)
	}
}

// AddDeclaration emits decl into Declarations keyed by key, a no-op if
// key was already added.
func (e *Emitter) AddDeclaration(key, decl string) {
	dkey := "decl:" + key
	if e.seenKeys[dkey] {
		return
	}
	e.seenKeys[dkey] = true
	e.Emit(Declarations, "%s", decl)
}

// AddDefinition emits def into Definitions keyed by key, a no-op if key
// was already added (spec §4.G "alreadyrequired"-style guard generalized
// to any keyed definition, not just require bodies).
func (e *Emitter) AddDefinition(key, def string) bool {
	dkey := "def:" + key
	if e.seenKeys[dkey] {
		return false
	}
	e.seenKeys[dkey] = true
	for _, ln := range strings.Split(strings.TrimRight(def, "\n"), "\n") {
		e.Emit(Definitions, "%s", ln)
	}
	return true
}

// HasKey reports whether key was already registered via AddDeclaration
// or AddDefinition — used by cbuiltins' alreadyrequired bookkeeping.
func (e *Emitter) HasKey(key string) bool {
	return e.seenKeys["decl:"+key] || e.seenKeys["def:"+key]
}

// String assembles the three regions, in order, into one translation
// unit. Directives are sorted for determinism (spec §8 "identical
// output on repeated runs over the same input"); Declarations and
// Definitions preserve emission order since later helpers may depend on
// earlier ones.
func (e *Emitter) String() string {
	var sb strings.Builder
	directives := append([]string(nil), e.lines[Directives]...)
	sort.Strings(directives)
	for _, ln := range directives {
		sb.WriteString(ln)
		sb.WriteByte('\n')
	}
	if len(directives) > 0 {
		sb.WriteByte('\n')
	}
	for _, ln := range e.lines[Declarations] {
		sb.WriteString(ln)
		sb.WriteByte('\n')
	}
	if len(e.lines[Declarations]) > 0 {
		sb.WriteByte('\n')
	}
	for _, ln := range e.lines[Definitions] {
		sb.WriteString(ln)
		sb.WriteByte('\n')
	}
	return sb.String()
}
