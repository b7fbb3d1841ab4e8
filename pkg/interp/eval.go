package interp

import (
	"fmt"
	"strings"

	"github.com/loomui/loom/pkg/binding"
	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/plan"
)

// env is one frame's evaluation environment: a state snapshot indexed by
// model slot, plus the live loop-variable stack indexed by loop depth.
type env struct {
	slots []any
	loops []any
}

func (e *env) setLoop(depth int, v any) {
	for len(e.loops) <= depth {
		e.loops = append(e.loops, nil)
	}
	e.loops[depth] = v
}

// eval walks a resolved expression. The resolver has already type-checked
// everything, so value shapes are trusted; the only runtime failure mode is
// an out-of-range index, which panics and is recovered at the Render
// boundary.
func eval(e ir.Expr, env *env) any {
	switch n := e.(type) {
	case *ir.Lit:
		return n.Value

	case *ir.FieldRef:
		return env.slots[n.Slot]

	case *ir.LoopRef:
		return env.loops[n.Depth]

	case *ir.SubField:
		rec := eval(n.Recv, env).(map[string]any)
		return rec[n.Name]

	case *ir.IndexExpr:
		coll := eval(n.Recv, env).([]any)
		i := int(eval(n.Idx, env).(float64))
		if i < 0 || i >= len(coll) {
			panic(fmt.Sprintf("index %d out of range (collection length %d)", i, len(coll)))
		}
		return coll[i]

	case *ir.LenCall:
		switch v := eval(n.Recv, env).(type) {
		case []any:
			return float64(len(v))
		case string:
			return float64(len(v))
		default:
			panic(fmt.Sprintf("len() on unexpected %T", v))
		}

	case *ir.Unary:
		switch n.Op {
		case binding.OpNot:
			return !eval(n.X, env).(bool)
		default:
			return -eval(n.X, env).(float64)
		}

	case *ir.Binary:
		return evalBinary(n, env)

	case *ir.Cond:
		if eval(n.If, env).(bool) {
			return eval(n.Then, env)
		}
		return eval(n.Else, env)

	case *ir.Interp:
		var b strings.Builder
		for _, seg := range n.Segments {
			if seg.Expr == nil {
				b.WriteString(seg.Text)
				continue
			}
			b.WriteString(plan.FormatValue(eval(seg.Expr, env)))
		}
		return b.String()
	}

	panic(fmt.Sprintf("unexpected expression %T", e))
}

func evalBinary(n *ir.Binary, env *env) any {
	// Boolean combinators short-circuit: Y is untouched when X decides.
	switch n.Op {
	case binding.OpAnd:
		if !eval(n.X, env).(bool) {
			return false
		}
		return eval(n.Y, env).(bool)
	case binding.OpOr:
		if eval(n.X, env).(bool) {
			return true
		}
		return eval(n.Y, env).(bool)
	}

	x := eval(n.X, env)
	y := eval(n.Y, env)

	switch n.Op {
	case binding.OpAdd:
		return x.(float64) + y.(float64)
	case binding.OpSub:
		return x.(float64) - y.(float64)
	case binding.OpMul:
		return x.(float64) * y.(float64)
	case binding.OpDiv:
		return x.(float64) / y.(float64)
	case binding.OpMod:
		return float64(int64(x.(float64)) % int64(y.(float64)))
	case binding.OpEq:
		return x == y
	case binding.OpNe:
		return x != y
	}

	// Ordered comparison over the operands' declared type.
	switch xv := x.(type) {
	case float64:
		yv := y.(float64)
		switch n.Op {
		case binding.OpLt:
			return xv < yv
		case binding.OpLe:
			return xv <= yv
		case binding.OpGt:
			return xv > yv
		default:
			return xv >= yv
		}
	case string:
		yv := y.(string)
		switch n.Op {
		case binding.OpLt:
			return xv < yv
		case binding.OpLe:
			return xv <= yv
		case binding.OpGt:
			return xv > yv
		default:
			return xv >= yv
		}
	}
	panic(fmt.Sprintf("unexpected comparison operands %T", x))
}
