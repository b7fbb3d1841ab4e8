package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loomui/loom/pkg/binding"
	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/schema"
)

// expr emits the Go source for one resolved expression, reading from the
// generated model struct. Operator semantics must match the interpreter
// exactly; Go's native && and || give the same short-circuit order, and
// conditionals compile to closures so only the taken branch evaluates.
func (g *generator) expr(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.Lit:
		return litSource(n.Value)

	case *ir.FieldRef:
		return "m." + exported(n.Name)

	case *ir.LoopRef:
		return loopVar(n.Depth)

	case *ir.SubField:
		return g.expr(n.Recv) + "." + exported(n.Name)

	case *ir.IndexExpr:
		return fmt.Sprintf("%s[int(%s)]", g.expr(n.Recv), g.expr(n.Idx))

	case *ir.LenCall:
		return fmt.Sprintf("float64(len(%s))", g.expr(n.Recv))

	case *ir.Unary:
		if n.Op == binding.OpNot {
			return "!(" + g.expr(n.X) + ")"
		}
		return "-(" + g.expr(n.X) + ")"

	case *ir.Binary:
		if n.Op == binding.OpMod {
			return fmt.Sprintf("float64(int64(%s) %% int64(%s))", g.expr(n.X), g.expr(n.Y))
		}
		return fmt.Sprintf("(%s %s %s)", g.expr(n.X), n.Op, g.expr(n.Y))

	case *ir.Cond:
		typ := goScalarType(n.Then.Type().Kind)
		return fmt.Sprintf("func() %s { if %s { return %s }; return %s }()",
			typ, g.expr(n.If), g.expr(n.Then), g.expr(n.Else))

	case *ir.Interp:
		return g.interp(n)
	}
	panic(fmt.Sprintf("codegen: unexpected expression %T", e))
}

func (g *generator) interp(n *ir.Interp) string {
	parts := make([]string, 0, len(n.Segments))
	for _, seg := range n.Segments {
		if seg.Expr == nil {
			parts = append(parts, strconv.Quote(seg.Text))
			continue
		}
		if seg.Expr.Type().Kind == schema.KindText {
			parts = append(parts, "("+g.expr(seg.Expr)+")")
			continue
		}
		parts = append(parts, "plan.FormatValue("+g.expr(seg.Expr)+")")
	}
	return strings.Join(parts, " + ")
}

// litSource emits a literal with its canonical runtime type. Numbers are
// always float64 so generated plans compare equal to interpreted ones.
func litSource(v any) string {
	switch n := v.(type) {
	case float64:
		return "float64(" + strconv.FormatFloat(n, 'f', -1, 64) + ")"
	case string:
		return strconv.Quote(n)
	case bool:
		return strconv.FormatBool(n)
	default:
		panic(fmt.Sprintf("codegen: unexpected literal %T", v))
	}
}

func goScalarType(k schema.Kind) string {
	switch k {
	case schema.KindNumber:
		return "float64"
	case schema.KindBool:
		return "bool"
	default:
		return "string"
	}
}

func loopVar(depth int) string {
	return fmt.Sprintf("v%d", depth)
}

// exported converts a snake_case schema name to an exported Go identifier.
func exported(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
