package validator

import (
	"strings"
	"testing"
)

func TestRulesValidatorRequired(t *testing.T) {
	v := NewRulesValidator()

	result := v.Validate("title", "   ", "required|string|max:10")
	if result.IsValid {
		t.Fatalf("expected blank value to fail required")
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != "The title field is required." {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}

	result = v.Validate("title", nil, "string|max:10")
	if !result.IsValid {
		t.Fatalf("expected empty optional value to pass, got %+v", result.Errors)
	}
}

func TestRulesValidatorStringLength(t *testing.T) {
	v := NewRulesValidator()

	result := v.Validate("title", strings.Repeat("é", 11), "required|string|max:10")
	if result.IsValid {
		t.Fatalf("expected eleven characters to exceed max:10")
	}
	if got := result.Messages()[0]; got != "The title field must not be greater than 10 characters." {
		t.Fatalf("unexpected message %q", got)
	}

	result = v.Validate("title", strings.Repeat("é", 10), "required|string|max:10")
	if !result.IsValid {
		t.Fatalf("expected ten multi-byte characters to pass, got %+v", result.Errors)
	}

	result = v.Validate("code", "ab", "min:3")
	if result.IsValid {
		t.Fatalf("expected two characters to fail min:3")
	}
}

func TestRulesValidatorNumeric(t *testing.T) {
	v := NewRulesValidator()

	cases := []struct {
		value any
		rules string
		valid bool
	}{
		{"42", "numeric|max:100", true},
		{"420", "numeric|max:100", false},
		{"abc", "numeric", false},
		{3.5, "integer", false},
		{float64(3), "integer", true},
		{"7", "integer|min:8", false},
		{150, "max:100", false},
	}
	for _, tc := range cases {
		result := v.Validate("views", tc.value, tc.rules)
		if result.IsValid != tc.valid {
			t.Fatalf("Validate(%v, %q) valid=%v, want %v (%+v)", tc.value, tc.rules, result.IsValid, tc.valid, result.Errors)
		}
	}
}

func TestRulesValidatorFormats(t *testing.T) {
	v := NewRulesValidator()

	cases := []struct {
		value any
		rules string
		valid bool
	}{
		{"ada@example.com", "email", true},
		{"Ada <ada@example.com>", "email", false},
		{"draft", "in:draft,published", true},
		{"archived", "in:draft,published", false},
		{"2024-05-01", "date", true},
		{"05/01/2024", "date", false},
		{"true", "boolean", true},
		{"6f1c1a9e-8f7a-4d7e-9d7a-1b2c3d4e5f60", "uuid", true},
		{"not-a-uuid", "uuid", false},
		{"x", "bogus", false},
	}
	for _, tc := range cases {
		result := v.Validate("field", tc.value, tc.rules)
		if result.IsValid != tc.valid {
			t.Fatalf("Validate(%v, %q) valid=%v, want %v (%+v)", tc.value, tc.rules, result.IsValid, tc.valid, result.Errors)
		}
	}
}

func TestParseRules(t *testing.T) {
	rules := ParseRules(" required | in:a, b ||max:5")
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[1].Name != "in" || len(rules[1].Params) != 2 || rules[1].Params[1] != "b" {
		t.Fatalf("unexpected in rule: %+v", rules[1])
	}
}
