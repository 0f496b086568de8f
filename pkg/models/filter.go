package models

// FilterOperator is the comparison applied between a snapshot field and the
// filter value.
type FilterOperator string

const (
	OperatorEquals         FilterOperator = "equals"
	OperatorNotEquals      FilterOperator = "not_equals"
	OperatorContains       FilterOperator = "contains"
	OperatorNotContains    FilterOperator = "not_contains"
	OperatorGreaterThan    FilterOperator = "greater_than"
	OperatorLessThan       FilterOperator = "less_than"
	OperatorGreaterOrEqual FilterOperator = "greater_or_equal"
	OperatorLessOrEqual    FilterOperator = "less_or_equal"
	OperatorIsEmpty        FilterOperator = "is_empty"
	OperatorIsNotEmpty     FilterOperator = "is_not_empty"
	OperatorHasLabel       FilterOperator = "has_label"
	OperatorNotHasLabel    FilterOperator = "not_has_label"
)

// NumericOperators are the operators that compare with numeric coercion. A
// non-numeric filter value paired with one of these is rejected at save time.
var NumericOperators = map[FilterOperator]bool{
	OperatorGreaterThan:    true,
	OperatorLessThan:       true,
	OperatorGreaterOrEqual: true,
	OperatorLessOrEqual:    true,
}

// LogicalOperator links a filter to the next one in the ordered list.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// Filter is one predicate over the triggering event's data snapshot. Filters
// evaluate left to right as an unparenthesized boolean fold: each filter's
// LogicalOperator combines the accumulated result with the NEXT filter's
// predicate. The last filter's LogicalOperator is ignored.
type Filter struct {
	Field           string          `json:"field"    validate:"required"`
	Operator        FilterOperator  `json:"operator" validate:"required"`
	Value           any             `json:"value,omitempty"`
	LogicalOperator LogicalOperator `json:"logical_operator,omitempty" validate:"omitempty,oneof=and or"`
}
