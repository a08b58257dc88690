package filters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudmirror/sharesync/internal/models"
)

// MatchRule is the deterministic admission filter configured on a task: the
// first capture (or whole match) of Pattern applied to a file name, compared
// to Value with Operator.
type MatchRule struct {
	pattern  *regexp.Regexp
	operator models.MatchOperator
	value    string
}

// NewMatchRule compiles a rule from a task's pattern, operator, and value.
// Returns (nil, nil) when no complete rule is configured, meaning all files pass.
func NewMatchRule(pattern string, operator models.MatchOperator, value string) (*MatchRule, error) {
	if pattern == "" || operator == "" || value == "" {
		return nil, nil
	}

	if !operator.Valid() {
		return nil, fmt.Errorf("unknown match operator: %s", operator)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern: %w", err)
	}

	return &MatchRule{pattern: re, operator: operator, value: value}, nil
}

// Keep decides whether a file name passes the rule. A name the pattern does
// not match at all is rejected (the rule fails closed).
func (r *MatchRule) Keep(name string) bool {
	match := r.pattern.FindStringSubmatch(name)
	if match == nil {
		return false
	}

	extracted := match[0]
	if len(match) > 1 {
		extracted = match[1]
	}

	switch r.operator {
	case models.OpLessThan, models.OpGreaterThan:
		left, err := strconv.ParseFloat(extracted, 64)
		if err != nil {
			return false
		}
		right, err := strconv.ParseFloat(r.value, 64)
		if err != nil {
			return false
		}
		if r.operator == models.OpLessThan {
			return left < right
		}
		return left > right
	case models.OpEqual:
		return extracted == r.value
	case models.OpContains:
		return strings.Contains(extracted, r.value)
	case models.OpNotContains:
		return !strings.Contains(extracted, r.value)
	default:
		return false
	}
}

// Description renders the rule as the natural-language filter sentence sent
// to the AI service in AI-assisted mode.
func (r *MatchRule) Description() string {
	var verb string
	switch r.operator {
	case models.OpLessThan:
		verb = "is less than"
	case models.OpGreaterThan:
		verb = "is greater than"
	case models.OpEqual:
		verb = "equals"
	case models.OpContains:
		verb = "contains"
	case models.OpNotContains:
		verb = "does not contain"
	}
	return fmt.Sprintf("keep files where the value extracted by the pattern %q %s %q", r.pattern.String(), verb, r.value)
}
