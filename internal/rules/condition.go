// Package rules is the reflexive path's condition/action matcher:
// priority-ordered rules with operator-aware predicates over stimulus
// fields, instantiating action templates on first match.
package rules

import (
	"fmt"
	"regexp"

	"github.com/talgya/swarmsim/internal/types"
)

// Condition maps stimulus field names to expected values. A plain value
// means literal equality; a Clause applies an operator.
type Condition map[string]any

// Operators understood by Clause.
const (
	OpGT      = "gt"
	OpLT      = "lt"
	OpGTE     = "gte"
	OpLTE     = "lte"
	OpEQ      = "eq"
	OpNEQ     = "neq"
	OpIn      = "in"
	OpMatches = "matches"
)

// Clause is an operator-based predicate over one stimulus field.
type Clause struct {
	Op    string
	Value any
}

// Op builds a Clause; declared rules read as rules.Op(rules.OpGT, 5).
func Op(op string, value any) Clause {
	return Clause{Op: op, Value: value}
}

// evaluate reports whether the condition holds for the stimulus. An
// error means the condition itself is faulty (unknown operator, bad
// pattern) and the caller should skip the rule, not fail the cycle.
func (c Condition) evaluate(s types.Stimulus) (bool, error) {
	for field, expected := range c {
		actual := s.Field(field)

		clause, isClause := expected.(Clause)
		if !isClause {
			if !literalEqual(actual, expected) {
				return false, nil
			}
			continue
		}

		ok, err := clause.apply(actual)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (cl Clause) apply(actual any) (bool, error) {
	switch cl.Op {
	case OpEQ:
		return literalEqual(actual, cl.Value), nil
	case OpNEQ:
		return !literalEqual(actual, cl.Value), nil
	case OpGT, OpLT, OpGTE, OpLTE:
		a, okA := toFloat(actual)
		b, okB := toFloat(cl.Value)
		if !okA || !okB {
			return false, nil // non-numeric field never satisfies a numeric comparison
		}
		switch cl.Op {
		case OpGT:
			return a > b, nil
		case OpLT:
			return a < b, nil
		case OpGTE:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	case OpIn:
		members, ok := cl.Value.([]any)
		if !ok {
			if strs, okS := cl.Value.([]string); okS {
				for _, m := range strs {
					if literalEqual(actual, m) {
						return true, nil
					}
				}
				return false, nil
			}
			return false, fmt.Errorf("in operator needs a list, got %T", cl.Value)
		}
		for _, m := range members {
			if literalEqual(actual, m) {
				return true, nil
			}
		}
		return false, nil
	case OpMatches:
		pattern, ok := cl.Value.(string)
		if !ok {
			return false, fmt.Errorf("matches operator needs a string pattern")
		}
		str, ok := actual.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		return re.MatchString(str), nil
	default:
		return false, fmt.Errorf("unknown operator %q", cl.Op)
	}
}

// literalEqual compares with numeric tolerance for the int/float64 mix
// that JSON decoding produces.
func literalEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, okB := toFloat(b); okB {
			return fa == fb
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
