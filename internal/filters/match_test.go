package filters

import (
	"strings"
	"testing"

	"github.com/cloudmirror/sharesync/internal/models"
)

func TestNewMatchRule(t *testing.T) {
	t.Run("IncompleteConfig", func(t *testing.T) {
		for _, tc := range []struct {
			name     string
			pattern  string
			operator models.MatchOperator
			value    string
		}{
			{"all empty", "", "", ""},
			{"missing pattern", "", models.OpGreaterThan, "5"},
			{"missing operator", `E(\d+)`, "", "5"},
			{"missing value", `E(\d+)`, models.OpGreaterThan, ""},
		} {
			t.Run(tc.name, func(t *testing.T) {
				rule, err := NewMatchRule(tc.pattern, tc.operator, tc.value)
				if err != nil {
					t.Fatalf("incomplete rule must not error: %v", err)
				}
				if rule != nil {
					t.Error("incomplete rule must be nil")
				}
			})
		}
	})

	t.Run("InvalidPattern", func(t *testing.T) {
		if _, err := NewMatchRule(`E(\d+`, models.OpGreaterThan, "5"); err == nil {
			t.Error("unbalanced pattern must error")
		}
	})

	t.Run("InvalidOperator", func(t *testing.T) {
		if _, err := NewMatchRule(`E(\d+)`, "between", "5"); err == nil {
			t.Error("unknown operator must error")
		}
	})
}

func TestMatchRuleKeep(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		operator models.MatchOperator
		value    string
		input    string
		want     bool
	}{
		{"gt keeps larger", `E(\d+)`, models.OpGreaterThan, "5", "Show E06.mkv", true},
		{"gt drops equal", `E(\d+)`, models.OpGreaterThan, "5", "Show E05.mkv", false},
		{"gt drops smaller", `E(\d+)`, models.OpGreaterThan, "5", "Show E04.mkv", false},
		{"lt keeps smaller", `E(\d+)`, models.OpLessThan, "10", "Show E09.mkv", true},
		{"lt drops larger", `E(\d+)`, models.OpLessThan, "10", "Show E11.mkv", false},
		{"eq on extraction", `S(\d+)`, models.OpEqual, "02", "Show S02E01.mkv", true},
		{"eq mismatch", `S(\d+)`, models.OpEqual, "02", "Show S03E01.mkv", false},
		{"contains", `.*`, models.OpContains, "1080p", "Show E01 1080p.mkv", true},
		{"contains mismatch", `.*`, models.OpContains, "1080p", "Show E01 720p.mkv", false},
		{"notContains", `.*`, models.OpNotContains, "sample", "Show E01.mkv", true},
		{"notContains mismatch", `.*`, models.OpNotContains, "sample", "Show E01 sample.mkv", false},
		{"no match rejects", `E(\d+)`, models.OpGreaterThan, "5", "trailer.mkv", false},
		{"non-numeric extraction rejects", `(\w+)`, models.OpGreaterThan, "5", "abc", false},
		{"whole match when no group", `\d+`, models.OpEqual, "42", "file 42.mkv", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := NewMatchRule(tc.pattern, tc.operator, tc.value)
			if err != nil {
				t.Fatalf("failed to build rule: %v", err)
			}
			if got := rule.Keep(tc.input); got != tc.want {
				t.Errorf("Keep(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestMatchRuleDescription(t *testing.T) {
	rule, err := NewMatchRule(`E(\d+)`, models.OpGreaterThan, "5")
	if err != nil {
		t.Fatalf("failed to build rule: %v", err)
	}

	desc := rule.Description()
	if !strings.Contains(desc, "is greater than") {
		t.Errorf("description missing operator phrasing: %s", desc)
	}
	if !strings.Contains(desc, `E(\d+)`) {
		t.Errorf("description missing pattern: %s", desc)
	}
}
