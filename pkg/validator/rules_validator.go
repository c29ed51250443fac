package validator

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RulesValidator checks single values against pipe separated rule strings
// such as "required|string|max:255".
type RulesValidator struct{}

// NewRulesValidator creates a new rules validator
func NewRulesValidator() *RulesValidator {
	return &RulesValidator{}
}

// Rule is one parsed rule with its parameters.
type Rule struct {
	Name   string
	Params []string
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// Messages returns the error messages in rule order.
func (r ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

// ParseRules splits a rule string into rules. Unknown rule names are kept so
// Validate can report them.
func ParseRules(rules string) []Rule {
	var out []Rule
	for _, part := range strings.Split(rules, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, params, hasParams := strings.Cut(part, ":")
		rule := Rule{Name: strings.ToLower(strings.TrimSpace(name))}
		if hasParams {
			for _, p := range strings.Split(params, ",") {
				rule.Params = append(rule.Params, strings.TrimSpace(p))
			}
		}
		out = append(out, rule)
	}
	return out
}

// Validate checks value against rules. An empty value only fails the
// required rule; every other rule is skipped for it.
func (rv *RulesValidator) Validate(field string, value any, rules string) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}
	parsed := ParseRules(rules)
	label := attributeName(field)

	numeric := false
	for _, rule := range parsed {
		if rule.Name == "numeric" || rule.Name == "integer" {
			numeric = true
		}
	}

	if isEmpty(value) {
		for _, rule := range parsed {
			if rule.Name == "required" {
				result.add(field, rule.Name, fmt.Sprintf("The %s field is required.", label), value)
			}
		}
		return result
	}

	for _, rule := range parsed {
		if msg := rv.check(label, value, rule, numeric); msg != "" {
			result.add(field, rule.Name, msg, value)
		}
	}
	return result
}

func (r *ValidationResult) add(field, rule, message string, value any) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Rule: rule, Message: message, Value: value})
}

func (rv *RulesValidator) check(label string, value any, rule Rule, numeric bool) string {
	switch rule.Name {
	case "required", "nullable", "sometimes":
		return ""
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("The %s field must be a string.", label)
		}
	case "numeric":
		if _, ok := toFloat(value); !ok {
			return fmt.Sprintf("The %s field must be a number.", label)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Sprintf("The %s field must be an integer.", label)
		}
	case "boolean":
		if !isBoolean(value) {
			return fmt.Sprintf("The %s field must be true or false.", label)
		}
	case "email":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("The %s field must be a valid email address.", label)
		}
		if addr, err := mail.ParseAddress(s); err != nil || addr.Address != s {
			return fmt.Sprintf("The %s field must be a valid email address.", label)
		}
	case "uuid":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("The %s field must be a valid UUID.", label)
		}
		if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
			return fmt.Sprintf("The %s field must be a valid UUID.", label)
		}
	case "date":
		if !isDate(value) {
			return fmt.Sprintf("The %s field must be a valid date.", label)
		}
	case "in":
		s := fmt.Sprint(value)
		for _, allowed := range rule.Params {
			if s == allowed {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "min", "max":
		return checkSize(label, value, rule, numeric)
	default:
		return fmt.Sprintf("The %s field has an unknown rule %q.", label, rule.Name)
	}
	return ""
}

// checkSize compares numbers by value when the rules mark the field numeric
// and strings by character count otherwise.
func checkSize(label string, value any, rule Rule, numeric bool) string {
	if len(rule.Params) == 0 {
		return fmt.Sprintf("The %s field has a %s rule without a limit.", label, rule.Name)
	}
	limit, err := strconv.ParseFloat(rule.Params[0], 64)
	if err != nil {
		return fmt.Sprintf("The %s field has an invalid %s limit.", label, rule.Name)
	}

	var size float64
	unit := " characters"
	if n, ok := toFloat(value); ok && (numeric || !isString(value)) {
		size = n
		unit = ""
	} else {
		size = float64(utf8.RuneCountInString(fmt.Sprint(value)))
	}

	switch {
	case rule.Name == "min" && size < limit:
		return fmt.Sprintf("The %s field must be at least %s%s.", label, rule.Params[0], unit)
	case rule.Name == "max" && size > limit:
		return fmt.Sprintf("The %s field must not be greater than %s%s.", label, rule.Params[0], unit)
	}
	return ""
}

func attributeName(field string) string {
	if idx := strings.LastIndex(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	return strings.ReplaceAll(field, "_", " ")
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	}
	return false
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

// Helper methods for type checking
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	case string:
		_, err := strconv.Atoi(strings.TrimSpace(v))
		return err == nil
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case int:
		return v == 0 || v == 1
	case string:
		switch v {
		case "0", "1", "true", "false":
			return true
		}
	}
	return false
}

func isDate(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return !v.IsZero()
	case string:
		for _, layout := range []string{time.DateOnly, time.DateTime, time.RFC3339} {
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return true
			}
		}
	}
	return false
}
