package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a node as a fully parenthesised s-expression, which makes
// grouping and associativity visible.
func Format(node interface{}) string {
	var b strings.Builder
	format(&b, node)
	return b.String()
}

func format(b *strings.Builder, node interface{}) {
	switch n := node.(type) {
	case Number:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case Variable:
		b.WriteString(n.Name)
	case Binary:
		fmt.Fprintf(b, "(%c ", n.Op)
		format(b, n.LHS)
		b.WriteByte(' ')
		format(b, n.RHS)
		b.WriteByte(')')
	case Call:
		b.WriteString("(" + n.Callee.Name)
		for _, arg := range n.Arguments {
			b.WriteByte(' ')
			format(b, arg)
		}
		b.WriteByte(')')
	case If:
		b.WriteString("(if ")
		format(b, n.Condition)
		b.WriteByte(' ')
		format(b, n.Then)
		b.WriteByte(' ')
		format(b, n.Else)
		b.WriteByte(')')
	case Prototype:
		fmt.Fprintf(b, "(extern %s(%s))", n.Name, strings.Join(n.Params, " "))
	case Function:
		if n.Anonymous {
			format(b, n.Body)
			return
		}
		fmt.Fprintf(b, "(def %s(%s) ", n.Proto.Name, strings.Join(n.Proto.Params, " "))
		format(b, n.Body)
		b.WriteByte(')')
	case Global:
		fmt.Fprintf(b, "(def %s ", n.Name.Name)
		format(b, n.Value)
		b.WriteByte(')')
	default:
		panic(fmt.Sprintf("unhandled node %T", node))
	}
}
