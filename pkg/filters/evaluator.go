// Package filters evaluates workflow filter chains against event snapshots.
//
// Filters form a left-associative, unparenthesized boolean expression: the
// result folds left to right, each filter's logical operator combining the
// accumulated result with the next filter's predicate. There is no operator
// precedence beyond the fold order.
package filters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fieldline/automation/pkg/models"
)

// Evaluator evaluates ordered filter lists. The zero value is usable; field
// names listed in CaseInsensitiveFields compare text without case.
type Evaluator struct {
	CaseInsensitiveFields map[string]bool
}

// Evaluate folds the filter list left to right against the snapshot. An empty
// list evaluates to true: the trigger fires on trigger-type match alone.
func (e Evaluator) Evaluate(filterList []*models.Filter, snapshot map[string]any) bool {
	if len(filterList) == 0 {
		return true
	}

	result := e.predicate(filterList[0], snapshot)

	for i := 1; i < len(filterList); i++ {
		right := e.predicate(filterList[i], snapshot)

		// The operator that joins filter i is carried by filter i-1.
		if filterList[i-1].LogicalOperator == models.LogicalOr {
			result = result || right
		} else {
			result = result && right
		}
	}

	return result
}

// Evaluate is the package-level entry point with default (case-sensitive)
// text comparison.
func Evaluate(filterList []*models.Filter, snapshot map[string]any) bool {
	return Evaluator{}.Evaluate(filterList, snapshot)
}

func (e Evaluator) predicate(filter *models.Filter, snapshot map[string]any) bool {
	value, present := snapshot[filter.Field]

	switch filter.Operator {
	case models.OperatorIsEmpty:
		return !present || stringify(value) == ""
	case models.OperatorIsNotEmpty:
		return present && stringify(value) != ""
	case models.OperatorHasLabel:
		return hasLabel(snapshot, stringify(filter.Value))
	case models.OperatorNotHasLabel:
		return !hasLabel(snapshot, stringify(filter.Value))
	}

	// Every remaining operator needs the field to be present; a malformed
	// snapshot is a non-match, never an error.
	if !present {
		return false
	}

	switch filter.Operator {
	case models.OperatorEquals:
		return e.textEquals(filter.Field, stringify(value), stringify(filter.Value))
	case models.OperatorNotEquals:
		return !e.textEquals(filter.Field, stringify(value), stringify(filter.Value))
	case models.OperatorContains:
		return e.textContains(filter.Field, stringify(value), stringify(filter.Value))
	case models.OperatorNotContains:
		return !e.textContains(filter.Field, stringify(value), stringify(filter.Value))
	case models.OperatorGreaterThan, models.OperatorLessThan,
		models.OperatorGreaterOrEqual, models.OperatorLessOrEqual:
		return numericCompare(filter.Operator, value, filter.Value)
	default:
		return false
	}
}

func (e Evaluator) textEquals(field, left, right string) bool {
	if e.CaseInsensitiveFields[field] {
		return strings.EqualFold(left, right)
	}

	return left == right
}

func (e Evaluator) textContains(field, haystack, needle string) bool {
	if e.CaseInsensitiveFields[field] {
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	}

	return strings.Contains(haystack, needle)
}

func numericCompare(operator models.FilterOperator, left, right any) bool {
	leftNum, leftOK := ToNumber(left)
	rightNum, rightOK := ToNumber(right)

	if !leftOK || !rightOK {
		return false
	}

	switch operator {
	case models.OperatorGreaterThan:
		return leftNum > rightNum
	case models.OperatorLessThan:
		return leftNum < rightNum
	case models.OperatorGreaterOrEqual:
		return leftNum >= rightNum
	case models.OperatorLessOrEqual:
		return leftNum <= rightNum
	default:
		return false
	}
}

// ToNumber coerces JSON-decoded values to float64.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func hasLabel(snapshot map[string]any, label string) bool {
	raw, ok := snapshot["labels"]
	if !ok {
		return false
	}

	switch labels := raw.(type) {
	case []string:
		for _, l := range labels {
			if l == label {
				return true
			}
		}
	case []any:
		for _, l := range labels {
			if stringify(l) == label {
				return true
			}
		}
	}

	return false
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
