package preprocessor

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/ppval"
)

// installHostFuncs binds the pp host functions spec §4.E names directly:
// injectnode, hygienize, afterinfer, staticassert, plus a `print` so pp
// code can emit diagnostics the same way ordinary source does.
func (e *Engine) installHostFuncs() {
	e.env.Define("injectnode", ppval.FuncVal(e.hostInjectNode))
	e.env.Define("hygienize", ppval.FuncVal(e.hostHygienize))
	e.env.Define("afterinfer", ppval.FuncVal(e.hostAfterInfer))
	e.env.Define("staticassert", ppval.FuncVal(e.hostStaticAssert))
	e.env.Define("static_error", ppval.FuncVal(e.hostStaticError))
	e.env.Define("print", ppval.FuncVal(e.hostPrint))
}

// hostInjectNode implements `injectnode(n)` (spec §4.E): n is appended to
// the engine's pending-injection list, spliced by the analyzer into the
// enclosing block at the preprocess statement's position.
func (e *Engine) hostInjectNode(args []ppval.Value) (ppval.Value, error) {
	if len(args) != 1 || args[0].Tag != ppval.TagNode {
		return ppval.Nil, fmt.Errorf("injectnode expects a single AST node argument")
	}
	e.injected = append(e.injected, args[0].Node)
	return ppval.Nil, nil
}

// hostHygienize implements `hygienize(fn)` (spec §4.E): it returns a
// wrapped callable that takes a scope checkpoint before invoking fn and
// restores it afterward, so fn can be safely invoked more than once
// without leaking declarations into outer scopes (spec §3/§9's
// checkpoint/restore semantics, exercised here rather than only in
// internal/nscope's own tests).
func (e *Engine) hostHygienize(args []ppval.Value) (ppval.Value, error) {
	if len(args) != 1 || args[0].Tag != ppval.TagFunc {
		return ppval.Nil, fmt.Errorf("hygienize expects a single function argument")
	}
	inner := args[0].Fn
	wrapped := func(callArgs []ppval.Value) (ppval.Value, error) {
		cp := e.Scopes.Current().MakeCheckpoint()
		defer cp.Restore()
		return inner(callArgs)
	}
	return ppval.FuncVal(wrapped), nil
}

// hostAfterInfer implements `afterinfer(fn)` (spec §4.E): fn is queued to
// run once, after the analyzer's full analyze pass completes.
func (e *Engine) hostAfterInfer(args []ppval.Value) (ppval.Value, error) {
	if len(args) != 1 || args[0].Tag != ppval.TagFunc {
		return ppval.Nil, fmt.Errorf("afterinfer expects a single function argument")
	}
	fn := args[0].Fn
	e.deferred = append(e.deferred, func() error {
		_, err := fn(nil)
		return err
	})
	return ppval.Nil, nil
}

// hostStaticAssert implements `staticassert(cond, msg?)` (spec §4.E): a
// falsy cond aborts the enclosing preprocess block with msg (or a
// generic message), the same fatal-diagnostic behavior spec §7 assigns
// to every other preprocess-kind error.
func (e *Engine) hostStaticAssert(args []ppval.Value) (ppval.Value, error) {
	if len(args) == 0 {
		return ppval.Nil, fmt.Errorf("staticassert expects at least a condition argument")
	}
	if args[0].Truthy() {
		return ppval.Nil, nil
	}
	msg := "static assertion failed!"
	if len(args) > 1 {
		msg = args[1].String()
	}
	return ppval.Nil, fmt.Errorf("%s", msg)
}

// hostStaticError implements `static_error(msg)`: an unconditional
// preprocess failure, used (unlike staticassert) to reject a code path
// outright rather than guard one — typically inside a polymorphic
// function body to reject an argument type a generic implementation
// can't handle.
func (e *Engine) hostStaticError(args []ppval.Value) (ppval.Value, error) {
	msg := "static error!"
	if len(args) > 0 {
		msg = args[0].String()
	}
	return ppval.Nil, fmt.Errorf("%s", msg)
}

func (e *Engine) hostPrint(args []ppval.Value) (ppval.Value, error) {
	parts := make([]any, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Println(parts...)
	return ppval.Nil, nil
}
