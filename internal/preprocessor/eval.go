package preprocessor

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/ppval"
)

// execStmt executes one pp statement, returning a value for expression
// statements (used when a pp block's last statement is an expression
// whose value is handed back by RunExpr-style callers) and an error that
// should abort the enclosing preprocess block (spec §7).
func (e *Engine) execStmt(n *ast.Node) (ppval.Value, error) {
	switch n.Tag {
	case ast.LocalDecl, ast.GlobalDecl:
		name := n.Child(0).Str
		var v ppval.Value = ppval.Nil
		if init := n.Child(1); init != nil {
			var err error
			v, err = e.eval(init)
			if err != nil {
				return ppval.Nil, err
			}
		}
		e.env.Define(name, v)
		return v, nil
	case ast.Assign:
		v, err := e.eval(n.Child(1))
		if err != nil {
			return ppval.Nil, err
		}
		lhs := n.Child(0)
		if lhs.Tag != ast.Id {
			return ppval.Nil, fmt.Errorf("preprocessor: cannot assign to a non-name expression")
		}
		if err := e.Assign(lhs.Str, v); err != nil {
			return ppval.Nil, err
		}
		return v, nil
	case ast.If:
		for i := 0; i+1 < len(n.Children); i += 2 {
			cond := n.Children[i]
			blk := n.Children[i+1]
			if cond == nil { // the trailing bare `else` clause
				return e.execBlock(blk)
			}
			v, err := e.eval(cond)
			if err != nil {
				return ppval.Nil, err
			}
			if v.Truthy() {
				return e.execBlock(blk)
			}
		}
		return ppval.Nil, nil
	case ast.While:
		cond, body := n.Child(0), n.Child(1)
		for {
			v, err := e.eval(cond)
			if err != nil {
				return ppval.Nil, err
			}
			if !v.Truthy() {
				break
			}
			if _, err := e.execBlock(body); err != nil {
				return ppval.Nil, err
			}
		}
		return ppval.Nil, nil
	case ast.Return:
		list := n.Child(0)
		if len(list.Children) == 0 {
			return ppval.Nil, nil
		}
		return e.eval(list.Children[0])
	case ast.Block:
		return e.execBlock(n)
	default:
		return e.eval(n)
	}
}

func (e *Engine) execBlock(n *ast.Node) (ppval.Value, error) {
	var last ppval.Value = ppval.Nil
	for _, stmt := range n.Children {
		v, err := e.execStmt(stmt)
		if err != nil {
			return ppval.Nil, err
		}
		last = v
	}
	return last, nil
}

// eval evaluates a pp expression node to a ppval.Value.
func (e *Engine) eval(n *ast.Node) (ppval.Value, error) {
	switch n.Tag {
	case ast.NilLit:
		return ppval.Nil, nil
	case ast.BoolLit:
		return ppval.Bool(n.Bool), nil
	case ast.NumberLit:
		return evalNumberLit(n)
	case ast.StringLit:
		return ppval.Str(n.Str), nil
	case ast.Id:
		if v, ok := e.Lookup(n.Str); ok {
			return v, nil
		}
		return ppval.Nil, fmt.Errorf("preprocessor: unknown identifier %q", n.Str)
	case ast.Paren:
		return e.eval(n.Child(0))
	case ast.UnOp:
		return e.evalUnary(n)
	case ast.BinOp:
		return e.evalBinary(n)
	case ast.Call:
		return e.evalCall(n)
	case ast.DotIndex:
		return e.evalDotIndex(n)
	case ast.FunctionExpr:
		return e.evalFunctionExpr(n)
	default:
		return ppval.Nil, fmt.Errorf("preprocessor: cannot evaluate node of kind %s", n.Tag)
	}
}

func evalNumberLit(n *ast.Node) (ppval.Value, error) {
	var f float64
	var isFloat bool
	for i := 0; i < len(n.Str); i++ {
		if n.Str[i] == '.' {
			isFloat = true
		}
	}
	if _, err := fmt.Sscanf(n.Str, "%g", &f); err != nil {
		return ppval.Nil, fmt.Errorf("preprocessor: invalid numeric literal %q", n.Str)
	}
	if isFloat {
		return ppval.Float(f), nil
	}
	return ppval.Int(int64(f)), nil
}

func (e *Engine) evalUnary(n *ast.Node) (ppval.Value, error) {
	v, err := e.eval(n.Child(0))
	if err != nil {
		return ppval.Nil, err
	}
	switch n.Str {
	case "not":
		return ppval.Bool(!v.Truthy()), nil
	case "-":
		if v.Tag == ppval.TagFloat {
			return ppval.Float(-v.Flt), nil
		}
		return ppval.Int(-v.Int), nil
	case "#":
		if v.Tag == ppval.TagString {
			return ppval.Int(int64(len(v.Str))), nil
		}
		if v.Tag == ppval.TagTable {
			return ppval.Int(int64(len(v.Tbl.Keys()))), nil
		}
		return ppval.Nil, fmt.Errorf("preprocessor: '#' is not defined for this value")
	default:
		return ppval.Nil, fmt.Errorf("preprocessor: unknown unary operator %q", n.Str)
	}
}

func (e *Engine) evalBinary(n *ast.Node) (ppval.Value, error) {
	// 'and'/'or' short-circuit, so the right side must not be
	// eagerly evaluated.
	if n.Str == "and" || n.Str == "or" {
		lhs, err := e.eval(n.Child(0))
		if err != nil {
			return ppval.Nil, err
		}
		if n.Str == "and" && !lhs.Truthy() {
			return lhs, nil
		}
		if n.Str == "or" && lhs.Truthy() {
			return lhs, nil
		}
		return e.eval(n.Child(1))
	}

	lhs, err := e.eval(n.Child(0))
	if err != nil {
		return ppval.Nil, err
	}
	rhs, err := e.eval(n.Child(1))
	if err != nil {
		return ppval.Nil, err
	}
	switch n.Str {
	case "==":
		return ppval.Bool(ppval.Equal(lhs, rhs)), nil
	case "~=":
		return ppval.Bool(!ppval.Equal(lhs, rhs)), nil
	case "..":
		return ppval.Str(lhs.String() + rhs.String()), nil
	case "+", "-", "*", "/", "//", "%", "^", "<", "<=", ">", ">=":
		return evalArith(n.Str, lhs, rhs)
	default:
		return ppval.Nil, fmt.Errorf("preprocessor: unknown binary operator %q", n.Str)
	}
}

func evalArith(op string, a, b ppval.Value) (ppval.Value, error) {
	af, aIsFloat := numeric(a)
	bf, bIsFloat := numeric(b)
	if a.Tag != ppval.TagInt && a.Tag != ppval.TagFloat {
		return ppval.Nil, fmt.Errorf("preprocessor: %q is not a number", a.String())
	}
	if b.Tag != ppval.TagInt && b.Tag != ppval.TagFloat {
		return ppval.Nil, fmt.Errorf("preprocessor: %q is not a number", b.String())
	}
	switch op {
	case "<":
		return ppval.Bool(af < bf), nil
	case "<=":
		return ppval.Bool(af <= bf), nil
	case ">":
		return ppval.Bool(af > bf), nil
	case ">=":
		return ppval.Bool(af >= bf), nil
	}
	result := 0.0
	switch op {
	case "+":
		result = af + bf
	case "-":
		result = af - bf
	case "*":
		result = af * bf
	case "/":
		result = af / bf
		aIsFloat = true
	case "^":
		result = pow(af, bf)
		aIsFloat = true
	case "//":
		result = float64(int64(af / bf))
	case "%":
		result = af - float64(int64(af/bf))*bf
	}
	if aIsFloat || bIsFloat {
		return ppval.Float(result), nil
	}
	return ppval.Int(int64(result)), nil
}

func pow(a, b float64) float64 {
	result := 1.0
	neg := b < 0
	n := int(b)
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		result *= a
	}
	if neg {
		return 1 / result
	}
	return result
}

func numeric(v ppval.Value) (float64, bool) {
	if v.Tag == ppval.TagFloat {
		return v.Flt, true
	}
	return float64(v.Int), false
}

func (e *Engine) evalCall(n *ast.Node) (ppval.Value, error) {
	argList := n.Child(0)
	callee := n.Child(1)
	fnVal, err := e.eval(callee)
	if err != nil {
		return ppval.Nil, err
	}
	if fnVal.Tag != ppval.TagFunc {
		return ppval.Nil, fmt.Errorf("preprocessor: attempt to call a non-function value")
	}
	args := make([]ppval.Value, len(argList.Children))
	for i, a := range argList.Children {
		v, err := e.eval(a)
		if err != nil {
			return ppval.Nil, err
		}
		args[i] = v
	}
	return fnVal.Fn(args)
}

// evalFunctionExpr turns a pp-source function literal (e.g. the callback
// passed to hygienize/afterinfer) into a ppval.Func closure over the
// environment frame active at definition time, matching the lexical
// scoping every other pp binding already gets.
func (e *Engine) evalFunctionExpr(n *ast.Node) (ppval.Value, error) {
	params, body := n.Child(0), n.Child(1)
	defEnv := e.env
	fn := func(args []ppval.Value) (ppval.Value, error) {
		callEnv := ppval.NewEnv(defEnv)
		for i, p := range params.Children {
			var v ppval.Value
			if i < len(args) {
				v = args[i]
			}
			callEnv.Define(p.Str, v)
		}
		prevEnv := e.env
		e.env = callEnv
		defer func() { e.env = prevEnv }()
		return e.execFunctionBody(body)
	}
	return ppval.FuncVal(fn), nil
}

// execFunctionBody runs a function literal's statements in order, stopping
// at the first top-level `return` the way execBlock's callers expect a
// function call's result to behave.
func (e *Engine) execFunctionBody(n *ast.Node) (ppval.Value, error) {
	for _, stmt := range n.Children {
		if stmt.Tag == ast.Return {
			return e.execStmt(stmt)
		}
		if _, err := e.execStmt(stmt); err != nil {
			return ppval.Nil, err
		}
	}
	return ppval.Nil, nil
}

func (e *Engine) evalDotIndex(n *ast.Node) (ppval.Value, error) {
	base, err := e.eval(n.Child(0))
	if err != nil {
		return ppval.Nil, err
	}
	field := n.Child(1).Str
	if base.Tag != ppval.TagTable {
		return ppval.Nil, fmt.Errorf("preprocessor: cannot index a non-table value with '.%s'", field)
	}
	v, ok := base.Tbl.Get(field)
	if !ok {
		return ppval.Nil, nil
	}
	return v, nil
}
