package filter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmespath/go-jmespath"
)

// Expression is a compiled JMESPath expression applied to JSON response bodies
type Expression struct {
	source string
	jp     *jmespath.JMESPath
}

// Compile compiles a JMESPath expression
func Compile(expression string) (*Expression, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}
	return &Expression{source: expression, jp: jp}, nil
}

// MustCompile is like Compile but panics on invalid expressions
func MustCompile(expression string) *Expression {
	e, err := Compile(expression)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source expression
func (e *Expression) String() string {
	return e.source
}

// Search applies the expression to a JSON document
func (e *Expression) Search(body string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	result, err := e.jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return result, nil
}

// Scalar applies the expression and renders the result as a string.
// Strings are returned as-is, numbers without exponent, and null as "".
func (e *Expression) Scalar(body string) (string, error) {
	result, err := e.Search(body)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expression '%s' selected a %T, expected a scalar", e.source, result)
	}
}

// Count applies the expression and returns the length of the selected array
func (e *Expression) Count(body string) (int, error) {
	result, err := e.Search(body)
	if err != nil {
		return 0, err
	}

	items, ok := result.([]interface{})
	if !ok {
		return 0, fmt.Errorf("expression '%s' selected a %T, expected an array", e.source, result)
	}
	return len(items), nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}
