package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parameter value types for ParamSpaceItem.
const (
	ValueTypeInt   = "INT"
	ValueTypeFloat = "FLOAT"
)

// ParamSpaceItem defines one tunable dimension of the search space.
// Immutable once loaded for a tuning cycle.
type ParamSpaceItem struct {
	Name         string
	StrategyKind string
	ValueType    string // INT | FLOAT
	Min          float64
	Max          float64
	Step         float64
	Enabled      bool
}

// ParamValue holds one parameter value together with its numeric resolution.
// The numeric form is resolved exactly once, at construction; consumers such
// as the guard compare Num directly and never re-parse Raw.
type ParamValue struct {
	Raw     any
	Num     float64
	Numeric bool
}

// NewParamValue resolves a raw value into a ParamValue. Integer, float,
// fixed-point decimal and numeric-string representations all resolve to the
// same numeric form. Unparseable values stay non-numeric; that is not an
// error, the guard simply skips them.
func NewParamValue(raw any) ParamValue {
	switch v := raw.(type) {
	case int:
		return ParamValue{Raw: raw, Num: float64(v), Numeric: true}
	case int32:
		return ParamValue{Raw: raw, Num: float64(v), Numeric: true}
	case int64:
		return ParamValue{Raw: raw, Num: float64(v), Numeric: true}
	case float32:
		return ParamValue{Raw: raw, Num: float64(v), Numeric: true}
	case float64:
		return ParamValue{Raw: raw, Num: v, Numeric: true}
	case decimal.Decimal:
		f, _ := v.Float64()
		return ParamValue{Raw: raw, Num: f, Numeric: true}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return ParamValue{Raw: raw}
		}
		f, _ := d.Float64()
		return ParamValue{Raw: raw, Num: f, Numeric: true}
	default:
		return ParamValue{Raw: raw}
	}
}

// FloatValue is a convenience constructor for numeric parameters.
func FloatValue(v float64) ParamValue {
	return ParamValue{Raw: v, Num: v, Numeric: true}
}

// IntValue is a convenience constructor for integer parameters.
func IntValue(v int) ParamValue {
	return ParamValue{Raw: v, Num: float64(v), Numeric: true}
}

// Candidate is one point in the search space: a mapping from parameter name
// to value. Treated as immutable once produced by a generator.
type Candidate struct {
	Params map[string]ParamValue
}

// NewCandidate builds a candidate from raw values, resolving each through
// NewParamValue.
func NewCandidate(raw map[string]any) Candidate {
	params := make(map[string]ParamValue, len(raw))
	for name, v := range raw {
		params[name] = NewParamValue(v)
	}
	return Candidate{Params: params}
}

// Float returns the numeric value of a parameter, if present and numeric.
func (c Candidate) Float(name string) (float64, bool) {
	v, ok := c.Params[name]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Num, true
}

// Int returns the parameter value truncated to int, if present and numeric.
func (c Candidate) Int(name string) (int, bool) {
	f, ok := c.Float(name)
	if !ok {
		return 0, false
	}
	return int(f), true
}
