package domain

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FilterKind tags the filter variant.
type FilterKind string

const (
	FilterKindText   FilterKind = "text"
	FilterKindSelect FilterKind = "select"
	FilterKindDate   FilterKind = "date"
)

// Option is a selectable value with its label.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// DateRange is a closed date interval. Either bound may be empty.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

// Filter narrows the query by one field. Column defaults to Name.
type Filter struct {
	Name        string
	Column      string
	Label       string
	Kind        FilterKind
	Operator    Operator
	Default     any
	Global      bool
	Placeholder string
	Options     []Option
	Gate        Gate
}

// NewTextFilter creates a substring filter. The optional column overrides the
// target field path.
func NewTextFilter(name string, column ...string) Filter {
	return newFilter(FilterKindText, OpLike, name, column)
}

// NewSelectFilter creates an equality filter over a fixed option set.
func NewSelectFilter(name string, column ...string) Filter {
	return newFilter(FilterKindSelect, OpEqual, name, column)
}

// NewDateFilter creates a date filter accepting a single date or a range.
func NewDateFilter(name string, column ...string) Filter {
	return newFilter(FilterKindDate, OpEqual, name, column)
}

func newFilter(kind FilterKind, op Operator, name string, column []string) Filter {
	target := name
	if len(column) > 0 && column[0] != "" {
		target = column[0]
	}
	return Filter{
		Name:     name,
		Column:   target,
		Label:    Headline(name),
		Kind:     kind,
		Operator: op,
	}
}

func (f Filter) WithLabel(label string) Filter {
	f.Label = label
	return f
}

func (f Filter) WithDefault(value any) Filter {
	f.Default = value
	return f
}

func (f Filter) WithOperator(op Operator) Filter {
	f.Operator = op
	return f
}

// AsGlobal marks the filter as table wide rather than column scoped.
func (f Filter) AsGlobal() Filter {
	f.Global = true
	return f
}

func (f Filter) WithPlaceholder(placeholder string) Filter {
	f.Placeholder = placeholder
	return f
}

func (f Filter) WithOptions(options ...Option) Filter {
	f.Options = append([]Option(nil), options...)
	return f
}

// WithGate guards the filter. A filter whose gate is not visible is neither
// rendered nor applied.
func (f Filter) WithGate(g Gate) Filter {
	f.Gate = g
	return f
}

// Field returns the target field path.
func (f Filter) Field() string {
	if f.Column == "" {
		return f.Name
	}
	return f.Column
}

// Apply narrows q by value. Empty values leave q unchanged.
func (f Filter) Apply(q Query, value any) (Query, error) {
	if IsEmptyValue(value) {
		return q, nil
	}
	cond, err := f.Condition(value)
	if err != nil {
		return q, err
	}
	if cond == nil {
		return q, nil
	}
	return q.Where(cond)
}

// Condition translates a filter value into a condition on the target field.
func (f Filter) Condition(value any) (Condition, error) {
	field := f.Field()
	switch f.Kind {
	case FilterKindText:
		op := f.Operator
		if op == "" {
			op = OpLike
		}
		return QualifyCompare(field, op, strings.TrimSpace(fmt.Sprint(value)))
	case FilterKindSelect:
		if values, ok := sliceValues(value); ok {
			return Qualify(field, func(leaf string) Condition {
				return In{Field: leaf, Values: values}
			})
		}
		op := f.Operator
		if op == "" {
			op = OpEqual
		}
		return QualifyCompare(field, op, value)
	case FilterKindDate:
		return f.dateCondition(field, value)
	default:
		return nil, fmt.Errorf("filter %q: unknown kind %q", f.Name, f.Kind)
	}
}

func (f Filter) dateCondition(field string, value any) (Condition, error) {
	rng, isRange, err := ToDateRange(value)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", f.Name, err)
	}
	if !isRange {
		op := f.Operator
		if op == "" || op == OpLike {
			op = OpEqual
		}
		return Qualify(field, func(leaf string) Condition {
			return DateCompare{Field: leaf, Op: op, Value: rng.From}
		})
	}
	return Qualify(field, func(leaf string) Condition {
		var parts AllOf
		if rng.From != "" {
			parts = append(parts, DateCompare{Field: leaf, Op: OpGreaterEqual, Value: rng.From})
		}
		if rng.To != "" {
			parts = append(parts, DateCompare{Field: leaf, Op: OpLessEqual, Value: rng.To})
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return parts
	})
}

// DateLayout is the canonical date format for date filters.
const DateLayout = "2006-01-02"

// ToDateRange normalises a date filter value. A single date comes back in
// From with isRange false.
func ToDateRange(value any) (DateRange, bool, error) {
	switch v := value.(type) {
	case DateRange:
		return v, true, validateDates(v.From, v.To)
	case *DateRange:
		if v == nil {
			return DateRange{}, true, nil
		}
		return *v, true, validateDates(v.From, v.To)
	case map[string]any:
		rng := DateRange{From: stringOrEmpty(v["from"]), To: stringOrEmpty(v["to"])}
		return rng, true, validateDates(rng.From, rng.To)
	case map[string]string:
		rng := DateRange{From: v["from"], To: v["to"]}
		return rng, true, validateDates(rng.From, rng.To)
	case time.Time:
		return DateRange{From: v.Format(DateLayout)}, false, nil
	case string:
		return DateRange{From: v}, false, validateDates(v)
	default:
		return DateRange{}, false, fmt.Errorf("unsupported date value %T", value)
	}
}

func validateDates(dates ...string) error {
	for _, d := range dates {
		if d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	return nil
}

func stringOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// IsEmptyValue reports whether a filter value should be ignored.
func IsEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case DateRange:
		return v.IsZero()
	case *DateRange:
		return v == nil || v.IsZero()
	case map[string]any:
		return len(v) == 0 || (stringOrEmpty(v["from"]) == "" && stringOrEmpty(v["to"]) == "" && hasOnlyRangeKeys(v))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func hasOnlyRangeKeys(m map[string]any) bool {
	for k := range m {
		if k != "from" && k != "to" {
			return false
		}
	}
	return true
}

func sliceValues(value any) ([]any, bool) {
	if _, ok := value.(string); ok {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}
