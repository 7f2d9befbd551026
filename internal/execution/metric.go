package execution

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// NameCodepointLimit bounds every custom metric name and every label.
const NameCodepointLimit = 128

// MetricKind tells which value a CustomMetric carries.
type MetricKind int

const (
	MetricKindNone MetricKind = iota
	MetricKindString
	MetricKindInt
)

// CustomMetric is a named value carrying either a string or an integer.
type CustomMetric struct {
	Name string
	kind MetricKind
	str  string
	num  int64
}

// StringMetric creates a metric with a string value
func StringMetric(name, value string) *CustomMetric {
	return &CustomMetric{Name: name, kind: MetricKindString, str: value}
}

// IntMetric creates a metric with an integer value
func IntMetric(name string, value int64) *CustomMetric {
	return &CustomMetric{Name: name, kind: MetricKindInt, num: value}
}

func (m CustomMetric) Kind() MetricKind { return m.kind }

// StringValue returns the string value and whether the metric carries one
func (m CustomMetric) StringValue() (string, bool) {
	return m.str, m.kind == MetricKindString
}

// IntValue returns the integer value and whether the metric carries one
func (m CustomMetric) IntValue() (int64, bool) {
	return m.num, m.kind == MetricKindInt
}

func (m CustomMetric) String() string {
	switch m.kind {
	case MetricKindString:
		return fmt.Sprintf("%s=%q", m.Name, m.str)
	case MetricKindInt:
		return m.Name + "=" + strconv.FormatInt(m.num, 10)
	default:
		return m.Name + "=<none>"
	}
}

// validateName enforces the non-empty and codepoint limit rules shared by
// metric names and labels.
func validateName(argument, name string) error {
	if name == "" {
		return NewInvalidArgumentError(argument, "must not be empty")
	}
	if !utf8.ValidString(name) {
		return NewInvalidArgumentError(argument, "must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(name); n > NameCodepointLimit {
		return NewInvalidArgumentError(argument, fmt.Sprintf("has %d codepoints, limit is %d", n, NameCodepointLimit))
	}
	return nil
}

func validateMetric(m *CustomMetric) error {
	if m == nil {
		return NewInvalidArgumentError("metric", "must not be nil")
	}
	if err := validateName("metric name", m.Name); err != nil {
		return err
	}
	if m.kind == MetricKindNone {
		return NewInvalidArgumentError("metric", fmt.Sprintf("%s carries no value", m.Name))
	}
	return nil
}
