package executor

import (
	"strings"

	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/value"
	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"
)

// evalExpr evaluates e against entry using three-valued logic: NULL
// propagates through comparisons and arithmetic, AND/OR only short
// circuit on a definite Boolean, and division by zero yields NULL rather
// than panicking.
func evalExpr(e ast.Expr, entry Entry, ec *EvalContext) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Column:
		idx := n.Index
		if ec != nil {
			idx = ec.ResolveColumnIndex(n.Table, n.Index)
		}
		if idx < 0 || idx >= len(entry.Values) {
			return value.Null(), columnNotFound(n.Table, n.Name)
		}
		return entry.Values[idx], nil

	case *ast.Literal:
		return n.Value, nil

	case *ast.BinaryExpr:
		left, err := evalExpr(n.Left, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		right, err := evalExpr(n.Right, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		return evalBinaryOp(n.Op, left, right)

	case *ast.UnaryExpr:
		v, err := evalExpr(n.Expr, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		return evalUnaryOp(n.Op, v), nil

	case *ast.BetweenExpr:
		v, err := evalExpr(n.Expr, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		lo, err := evalExpr(n.Lo, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		hi, err := evalExpr(n.Hi, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		if v.IsNull() || lo.IsNull() || hi.IsNull() {
			return value.Null(), nil
		}
		inRange := v.Compare(lo) >= 0 && v.Compare(hi) <= 0
		if n.Negated {
			inRange = !inRange
		}
		return value.Boolean(inRange), nil

	case *ast.InExpr:
		v, err := evalExpr(n.Expr, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		if v.IsNull() {
			return value.Null(), nil
		}
		found := false
		for _, item := range n.List {
			iv, err := evalExpr(item, entry, ec)
			if err != nil {
				return value.Null(), err
			}
			if v.Equal(iv) {
				found = true
				break
			}
		}
		if n.Negated {
			found = !found
		}
		return value.Boolean(found), nil

	case *ast.LikeExpr:
		v, err := evalExpr(n.Expr, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		pat, err := evalExpr(n.Pattern, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		if v.Kind() != value.KindString {
			return value.Boolean(n.Negated), nil
		}
		matched := matchLikePattern(v.Str(), pat.Str())
		if n.Negated {
			matched = !matched
		}
		return value.Boolean(matched), nil

	case *ast.MatchExpr:
		v, err := evalExpr(n.Expr, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		pat, err := evalExpr(n.Pattern, entry, ec)
		if err != nil {
			return value.Null(), err
		}
		if v.Kind() != value.KindString {
			return value.Boolean(n.Negated), nil
		}
		matched := matchRegexPattern(v.Str(), pat.Str())
		if n.Negated {
			matched = !matched
		}
		return value.Boolean(matched), nil

	case *ast.FuncCall:
		args := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := evalExpr(a, entry, ec)
			if err != nil {
				return value.Null(), err
			}
			args[i] = v
		}
		return evalFunction(n.Name, args)

	default:
		return value.Null(), invalidOp("unsupported expression node")
	}
}

// EvalExpr evaluates e against a flat row of values. Exported so
// internal/dataflow's compiled predicates, key extractors and mappers
// share this package's exact three-valued-logic semantics instead of
// reimplementing them — the property that incremental maintenance agrees
// with one-shot re-query depends on both using the same evaluator.
func EvalExpr(e ast.Expr, values []value.Value, ec *EvalContext) (value.Value, error) {
	return evalExpr(e, Entry{Values: values}, ec)
}

// EvalPredicate is the EvalExpr counterpart for filter predicates.
func EvalPredicate(e ast.Expr, values []value.Value, ec *EvalContext) (bool, error) {
	return evalPredicate(e, Entry{Values: values}, ec)
}

// evalPredicate applies three-valued logic's final collapse: only a
// definite true counts, NULL and false both filter the row out.
func evalPredicate(e ast.Expr, entry Entry, ec *EvalContext) (bool, error) {
	v, err := evalExpr(e, entry, ec)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.Kind() == value.KindBoolean && v.Bool(), nil
}

func evalBinaryOp(op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	if left.IsNull() || right.IsNull() {
		switch op {
		case ast.OpAnd:
			if left.Kind() == value.KindBoolean && !left.Bool() {
				return value.Boolean(false), nil
			}
			if right.Kind() == value.KindBoolean && !right.Bool() {
				return value.Boolean(false), nil
			}
			return value.Null(), nil
		case ast.OpOr:
			if left.Kind() == value.KindBoolean && left.Bool() {
				return value.Boolean(true), nil
			}
			if right.Kind() == value.KindBoolean && right.Bool() {
				return value.Boolean(true), nil
			}
			return value.Null(), nil
		default:
			return value.Null(), nil
		}
	}

	switch op {
	case ast.OpEq:
		return value.Boolean(left.Compare(right) == 0), nil
	case ast.OpNe:
		return value.Boolean(left.Compare(right) != 0), nil
	case ast.OpLt:
		return value.Boolean(left.Compare(right) < 0), nil
	case ast.OpLe:
		return value.Boolean(left.Compare(right) <= 0), nil
	case ast.OpGt:
		return value.Boolean(left.Compare(right) > 0), nil
	case ast.OpGe:
		return value.Boolean(left.Compare(right) >= 0), nil
	case ast.OpAnd:
		l := left.Kind() == value.KindBoolean && left.Bool()
		r := right.Kind() == value.KindBoolean && right.Bool()
		return value.Boolean(l && r), nil
	case ast.OpOr:
		l := left.Kind() == value.KindBoolean && left.Bool()
		r := right.Kind() == value.KindBoolean && right.Bool()
		return value.Boolean(l || r), nil
	case ast.OpAdd:
		return evalArithmetic(left, right, func(a, b float64) float64 { return a + b })
	case ast.OpSub:
		return evalArithmetic(left, right, func(a, b float64) float64 { return a - b })
	case ast.OpMul:
		return evalArithmetic(left, right, func(a, b float64) float64 { return a * b })
	case ast.OpDiv:
		if isZero(right) {
			return value.Null(), nil
		}
		return evalArithmetic(left, right, func(a, b float64) float64 { return a / b })
	case ast.OpMod:
		return evalMod(left, right)
	default:
		return value.Null(), nil
	}
}

func isZero(v value.Value) bool {
	switch v.Kind() {
	case value.KindInt32, value.KindInt64:
		return v.Int() == 0
	case value.KindFloat64:
		return v.Float() == 0
	default:
		return false
	}
}

func evalArithmetic(left, right value.Value, op func(a, b float64) float64) (value.Value, error) {
	l, lok := left.AsFloat()
	r, rok := right.AsFloat()
	if !lok || !rok {
		return value.Null(), nil
	}
	result := op(l, r)
	if left.Kind() == value.KindInt64 && right.Kind() == value.KindInt64 {
		return value.Int64(int64(result)), nil
	}
	if left.Kind() == value.KindInt32 && right.Kind() == value.KindInt32 {
		return value.Int32(int32(result)), nil
	}
	return value.Float64(result), nil
}

func evalMod(left, right value.Value) (value.Value, error) {
	switch {
	case left.Kind() == value.KindInt64 && right.Kind() == value.KindInt64 && right.Int() != 0:
		return value.Int64(left.Int() % right.Int()), nil
	case left.Kind() == value.KindInt32 && right.Kind() == value.KindInt32 && right.Int() != 0:
		return value.Int32(int32(left.Int() % right.Int())), nil
	default:
		return value.Null(), nil
	}
}

func evalUnaryOp(op ast.UnaryOp, v value.Value) value.Value {
	switch op {
	case ast.OpNot:
		if v.IsNull() {
			return value.Null()
		}
		if v.Kind() == value.KindBoolean {
			return value.Boolean(!v.Bool())
		}
		return value.Null()
	case ast.OpNeg:
		switch v.Kind() {
		case value.KindInt32:
			return value.Int32(-int32(v.Int()))
		case value.KindInt64:
			return value.Int64(-v.Int())
		case value.KindFloat64:
			return value.Float64(-v.Float())
		default:
			return value.Null()
		}
	case ast.OpIsNull:
		return value.Boolean(v.IsNull())
	case ast.OpIsNotNull:
		return value.Boolean(!v.IsNull())
	default:
		return value.Null()
	}
}

func evalFunction(name string, args []value.Value) (value.Value, error) {
	switch strings.ToUpper(name) {
	case "ABS":
		if len(args) == 0 {
			return value.Null(), nil
		}
		switch args[0].Kind() {
		case value.KindInt32:
			return value.Int32(abs32(int32(args[0].Int()))), nil
		case value.KindInt64:
			return value.Int64(abs64(args[0].Int())), nil
		case value.KindFloat64:
			f := args[0].Float()
			if f < 0 {
				f = -f
			}
			return value.Float64(f), nil
		default:
			return value.Null(), nil
		}
	case "UPPER":
		if len(args) == 0 || args[0].Kind() != value.KindString {
			return value.Null(), nil
		}
		return value.String(strings.ToUpper(args[0].Str())), nil
	case "LOWER":
		if len(args) == 0 || args[0].Kind() != value.KindString {
			return value.Null(), nil
		}
		return value.String(strings.ToLower(args[0].Str())), nil
	case "LENGTH":
		if len(args) == 0 || args[0].Kind() != value.KindString {
			return value.Null(), nil
		}
		return value.Int64(int64(len(args[0].Str()))), nil
	case "COALESCE":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return value.Null(), nil
	case "JSONB_PATH_EQ":
		if len(args) < 3 || args[0].Kind() != value.KindJsonb || args[1].Kind() != value.KindString {
			return value.Boolean(false), nil
		}
		return value.Boolean(jsonbPathEq(args[0].JsonbBytes(), args[1].Str(), args[2])), nil
	case "JSONB_CONTAINS", "JSONB_EXISTS":
		if len(args) < 2 || args[0].Kind() != value.KindJsonb || args[1].Kind() != value.KindString {
			return value.Boolean(false), nil
		}
		return value.Boolean(jsonbPathExists(args[0].JsonbBytes(), args[1].Str())), nil
	default:
		return value.Null(), nil
	}
}

func abs32(i int32) int32 {
	if i < 0 {
		return -i
	}
	return i
}

func abs64(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}

// matchLikePattern implements SQL LIKE's % (any run) and _ (single char)
// wildcards via simple recursive backtracking.
func matchLikePattern(s, pattern string) bool {
	return matchLikeRecursive([]rune(s), []rune(pattern), 0, 0)
}

func matchLikeRecursive(s, p []rune, si, pi int) bool {
	for pi < len(p) {
		switch p[pi] {
		case '%':
			for pi < len(p) && p[pi] == '%' {
				pi++
			}
			if pi == len(p) {
				return true
			}
			for i := si; i <= len(s); i++ {
				if matchLikeRecursive(s, p, i, pi) {
					return true
				}
			}
			return false
		case '_':
			if si >= len(s) {
				return false
			}
			si++
			pi++
		default:
			if si >= len(s) || s[si] != p[pi] {
				return false
			}
			si++
			pi++
		}
	}
	return si == len(s)
}

// matchRegexPattern compiles pattern with regexp2 (.NET-flavored regex,
// matching the original's \d \w \s and anchor support) and reports
// whether it matches anywhere in s.
func matchRegexPattern(s, pattern string) bool {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false
	}
	m, err := re.MatchString(s)
	if err != nil {
		return false
	}
	return m
}

// jsonbPathEq resolves path against raw JSON bytes with gjson and
// compares the result to expected using epsilon-tolerant numeric
// equality, per the Value documentation on EqualEpsilon.
func jsonbPathEq(raw []byte, path string, expected value.Value) bool {
	res := gjson.GetBytes(raw, gjsonPath(path))
	if !res.Exists() {
		return false
	}
	return gjsonResultEquals(res, expected)
}

func jsonbPathExists(raw []byte, path string) bool {
	return gjson.GetBytes(raw, gjsonPath(path)).Exists()
}

// gjsonPath rewrites a JSONPath-ish `$.a.b` / `$.a[0]` argument into
// gjson's dotted path syntax.
func gjsonPath(path string) string {
	p := strings.TrimPrefix(path, "$.")
	p = strings.TrimPrefix(p, "$")
	p = strings.TrimPrefix(p, ".")
	return p
}

func gjsonResultEquals(res gjson.Result, expected value.Value) bool {
	switch expected.Kind() {
	case value.KindString:
		return res.Type == gjson.String && res.Str == expected.Str()
	case value.KindBoolean:
		if expected.Bool() {
			return res.Type == gjson.True
		}
		return res.Type == gjson.False
	case value.KindInt32, value.KindInt64, value.KindFloat64:
		if res.Type != gjson.Number {
			return false
		}
		ev, _ := expected.AsFloat()
		return value.Float64(res.Num).EqualEpsilon(value.Float64(ev))
	default:
		return false
	}
}
