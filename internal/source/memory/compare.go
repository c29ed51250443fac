package memory

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/rpattn/tablekit/internal/domain"
)

var folder = cases.Fold()

// containsFold is a Unicode aware case-insensitive substring test.
func containsFold(value any, term string) bool {
	if value == nil {
		return false
	}
	return strings.Contains(folder.String(fmt.Sprint(value)), folder.String(term))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// compareValues orders two non-nil values: numerically when both are
// numbers, chronologically for times, false before true for bools, and by
// their string form otherwise.
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func matchOperator(op domain.Operator, value, target any) bool {
	if op == domain.OpLike {
		return containsFold(value, fmt.Sprint(target))
	}
	if value == nil || target == nil {
		switch op {
		case domain.OpEqual:
			return value == nil && target == nil
		case domain.OpNotEqual:
			return (value == nil) != (target == nil)
		default:
			return false
		}
	}
	cmp := compareValues(value, target)
	switch op {
	case domain.OpEqual:
		return cmp == 0
	case domain.OpNotEqual:
		return cmp != 0
	case domain.OpGreater:
		return cmp > 0
	case domain.OpGreaterEqual:
		return cmp >= 0
	case domain.OpLess:
		return cmp < 0
	case domain.OpLessEqual:
		return cmp <= 0
	default:
		return false
	}
}

// datePart extracts YYYY-MM-DD from a time or a date/time string.
func datePart(value any) (string, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(domain.DateLayout), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return v.Format(domain.DateLayout), true
	case string:
		if len(v) < len(domain.DateLayout) {
			return "", false
		}
		return v[:len(domain.DateLayout)], true
	default:
		return "", false
	}
}
