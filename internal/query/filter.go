package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/graphledger/graphledger/internal/flake"
)

// EvalFilter evaluates a parsed FILTER expression against one row's
// bindings, dispatching on the AST node's concrete type (AND, OR, NOT, or
// a comparison against one bound variable).
func EvalFilter(node Node, bindings map[string]flake.Object) (bool, error) {
	switch n := node.(type) {
	case *AndNode:
		left, err := EvalFilter(n.Left, bindings)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil
		}
		return EvalFilter(n.Right, bindings)
	case *OrNode:
		left, err := EvalFilter(n.Left, bindings)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return EvalFilter(n.Right, bindings)
	case *NotNode:
		v, err := EvalFilter(n.Operand, bindings)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *ComparisonNode:
		return evalComparison(n, bindings)
	default:
		return false, fmt.Errorf("query: unhandled filter node %T", node)
	}
}

func evalComparison(n *ComparisonNode, bindings map[string]flake.Object) (bool, error) {
	bound, ok := bindings[n.Field]
	if !ok {
		return false, nil // unbound variable never satisfies a comparison
	}

	switch n.ValueType {
	case TokenNumber:
		lhs, ok := numericOf(bound)
		if !ok {
			return false, nil
		}
		rhs, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return false, fmt.Errorf("query: %q is not numeric: %w", n.Value, err)
		}
		return compareOrdered(lhs, rhs, n.Op), nil
	case TokenString:
		lhs, ok := bound.Value.(string)
		if !ok {
			return false, nil
		}
		return compareStrings(lhs, n.Value, n.Op), nil
	default: // TokenIdent: bareword, compared as string
		lhs := fmt.Sprint(bound.Value)
		if bound.IsRef {
			lhs = bound.Ref.String()
		}
		return compareStrings(lhs, n.Value, n.Op), nil
	}
}

func numericOf(o flake.Object) (float64, bool) {
	switch v := o.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func compareOrdered(lhs, rhs float64, op ComparisonOp) bool {
	switch op {
	case OpEquals:
		return lhs == rhs
	case OpNotEquals:
		return lhs != rhs
	case OpLess:
		return lhs < rhs
	case OpLessEq:
		return lhs <= rhs
	case OpGreater:
		return lhs > rhs
	case OpGreaterEq:
		return lhs >= rhs
	default:
		return false
	}
}

func compareStrings(lhs, rhs string, op ComparisonOp) bool {
	switch op {
	case OpEquals:
		return lhs == rhs
	case OpNotEquals:
		return lhs != rhs
	case OpLess:
		return strings.Compare(lhs, rhs) < 0
	case OpLessEq:
		return strings.Compare(lhs, rhs) <= 0
	case OpGreater:
		return strings.Compare(lhs, rhs) > 0
	case OpGreaterEq:
		return strings.Compare(lhs, rhs) >= 0
	default:
		return false
	}
}
