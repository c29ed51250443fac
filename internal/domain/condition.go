package domain

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator understood by every data source.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpLike         Operator = "like"
)

// ParseOperator normalises an operator string. "<>" is accepted for !=.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpLike:
		return op, nil
	case "<>":
		return OpNotEqual, nil
	case "":
		return OpEqual, nil
	default:
		return "", fmt.Errorf("unsupported operator %q", s)
	}
}

// Condition is a predicate over a single record. The set of implementations
// is closed; data sources switch over the concrete types.
type Condition interface {
	condition()
}

// Compare tests a direct field against a value. OpLike is a
// case-insensitive substring match.
type Compare struct {
	Field string
	Op    Operator
	Value any
}

// DateCompare compares the date part of a field with a YYYY-MM-DD value.
type DateCompare struct {
	Field string
	Op    Operator
	Value string
}

// In matches records whose field equals one of the values.
type In struct {
	Field  string
	Values []any
}

// Exists holds when at least one record reached through Relation satisfies
// Where. A nil Where only requires the relation to be non-empty.
type Exists struct {
	Relation string
	Where    Condition
}

// AnyOf holds when any of its conditions holds. An empty AnyOf never holds.
type AnyOf []Condition

// AllOf holds when all of its conditions hold.
type AllOf []Condition

func (Compare) condition()     {}
func (DateCompare) condition() {}
func (In) condition()          {}
func (Exists) condition()      {}
func (AnyOf) condition()       {}
func (AllOf) condition()       {}

// Qualify builds the condition for a possibly relational field path.
// "a.b.c = v" becomes Exists{a, Exists{b, Compare{c = v}}}.
func Qualify(path string, build func(leaf string) Condition) (Condition, error) {
	fp, err := ParseFieldPath(path)
	if err != nil {
		return nil, err
	}
	var cond Condition = build(fp.Leaf)
	for i := len(fp.Segments) - 2; i >= 0; i-- {
		cond = Exists{Relation: fp.Segments[i], Where: cond}
	}
	return cond, nil
}

// QualifyCompare is Qualify for a plain comparison.
func QualifyCompare(path string, op Operator, value any) (Condition, error) {
	return Qualify(path, func(leaf string) Condition {
		return Compare{Field: leaf, Op: op, Value: value}
	})
}

// LikeEscape is the escape character LikePattern uses.
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// LikePattern wraps a term for a SQL LIKE substring match. Wildcards in term
// are escaped with LikeEscape so they match literally.
func LikePattern(term string) string {
	return "%" + likeReplacer.Replace(term) + "%"
}
