package ppval

import "fmt"

// Env is a lexical pp-environment frame with a parent link, grounded on
// daios-ai-msg/interpreter.go's Env (Define/Set/Get over a parent chain).
// Unlike MindScript's Env, Get here is only the *local* chain lookup: the
// full layered fallback spec §9 describes (symbols -> pragmas -> host ->
// primtypes) is implemented by internal/preprocessor.Engine.Lookup, which
// tries Env.Get first and only then falls through to the other layers.
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a child frame of parent (nil for the outermost frame).
func NewEnv(parent *Env) *Env { return &Env{parent: parent, table: make(map[string]Value)} }

// Define binds name in this exact frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) { e.table[name] = v }

// Set updates the nearest existing binding of name, walking outward. It
// returns an error if no frame binds name (assignment never implicitly
// defines — spec §4.E routes an unbound assignment to the pragma/host
// layer instead, handled one level up in internal/preprocessor).
func (e *Env) Set(name string, v Value) error {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.table[name]; ok {
			f.table[name] = v
			return nil
		}
	}
	return fmt.Errorf("undefined pp variable: %s", name)
}

// Get retrieves the nearest visible binding for name.
func (e *Env) Get(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.table[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}
