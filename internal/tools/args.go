// ABOUTME: Declarative argument fields, validation, and typed accessors.
// ABOUTME: Untyped JSON arguments are checked field by field in declared order.
package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/harperreed/ultratrainer/internal/models"
)

// FieldType is the declared type of an argument.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeInteger    FieldType = "integer"
	TypeNumber     FieldType = "number"
	TypeBoolean    FieldType = "boolean"
	TypeDate       FieldType = "date"     // YYYY-MM-DD, kept as a string
	TypeDateTime   FieldType = "datetime" // RFC 3339 or YYYY-MM-DD, parsed to UTC time.Time
	TypeStringList FieldType = "string-array"
)

// Field declares one named argument.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string
	Min         *float64
	Max         *float64

	// ExclusiveMin makes Min a strict lower bound.
	ExclusiveMin bool
	MaxLength    int

	// Check runs after type and bound checks. args holds the fields validated so far.
	Check func(value any, args Args) error
}

// Bound returns a pointer for use as Field.Min or Field.Max.
func Bound(v float64) *float64 {
	return &v
}

// Args holds validated, typed argument values keyed by field name.
// Values are string, int64, float64, bool, time.Time, or []string.
type Args map[string]any

// Has reports whether the argument was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns a string or date argument.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// Int returns an integer argument.
func (a Args) Int(name string) (int64, bool) {
	v, ok := a[name].(int64)
	return v, ok
}

// Float returns a number argument.
func (a Args) Float(name string) (float64, bool) {
	v, ok := a[name].(float64)
	return v, ok
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) (bool, bool) {
	v, ok := a[name].(bool)
	return v, ok
}

// Time returns a datetime argument.
func (a Args) Time(name string) (time.Time, bool) {
	v, ok := a[name].(time.Time)
	return v, ok
}

// Strings returns a string-array argument.
func (a Args) Strings(name string) ([]string, bool) {
	v, ok := a[name].([]string)
	return v, ok
}

// decodeArguments parses the raw argument object. Absent or null means no arguments.
func decodeArguments(raw json.RawMessage) (map[string]any, *Error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, InvalidArguments("", "arguments must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, InvalidArguments("", "arguments must be a single JSON object")
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

// validate checks raw arguments against the tool's declared fields and returns
// the first violation only: declared fields in order, then unknown fields in
// sorted order, then the tool-level check.
func validate(t *Tool, raw json.RawMessage) (Args, *Error) {
	input, verr := decodeArguments(raw)
	if verr != nil {
		return nil, verr
	}

	args := Args{}
	for _, f := range t.Args {
		v, present := input[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, InvalidArguments(f.Name, "is required")
			}
			continue
		}

		val, reason := f.coerce(v)
		if reason != "" {
			return nil, InvalidArguments(f.Name, reason)
		}
		if f.Check != nil {
			if err := f.Check(val, args); err != nil {
				return nil, InvalidArguments(f.Name, err.Error())
			}
		}
		args[f.Name] = val
	}

	var unknown []string
	for name := range input {
		if !slices.ContainsFunc(t.Args, func(f Field) bool { return f.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, InvalidArguments(unknown[0], "is not a recognized argument")
	}

	if t.Check != nil {
		if err := t.Check(args); err != nil {
			var toolErr *Error
			if errors.As(err, &toolErr) {
				return nil, toolErr
			}
			return nil, InvalidArguments("", err.Error())
		}
	}
	return args, nil
}

// coerce converts a decoded JSON value to the field's Go type.
// A non-empty reason means the value is invalid.
func (f Field) coerce(v any) (any, string) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a string"
		}
		return f.checkString(s)

	case TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return nil, "must be an integer"
		}
		i, err := n.Int64()
		if err != nil {
			fl, ferr := n.Float64()
			if ferr != nil || fl != math.Trunc(fl) || fl < math.MinInt64 || fl >= math.MaxInt64 {
				return nil, "must be an integer"
			}
			i = int64(fl)
		}
		if reason := f.checkBounds(float64(i)); reason != "" {
			return nil, reason
		}
		return i, ""

	case TypeNumber:
		n, ok := v.(json.Number)
		if !ok {
			return nil, "must be a number"
		}
		fl, err := n.Float64()
		if err != nil || math.IsInf(fl, 0) || math.IsNaN(fl) {
			return nil, "must be a finite number"
		}
		if reason := f.checkBounds(fl); reason != "" {
			return nil, reason
		}
		return fl, ""

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, "must be a boolean"
		}
		return b, ""

	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a date string (YYYY-MM-DD)"
		}
		d, err := models.ParseDate(strings.TrimSpace(s))
		if err != nil {
			return nil, err.Error()
		}
		return d.Format(models.DateLayout), ""

	case TypeDateTime:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a timestamp string"
		}
		t, err := parseDateTime(strings.TrimSpace(s))
		if err != nil {
			return nil, err.Error()
		}
		return t, ""

	case TypeStringList:
		items, ok := v.([]any)
		if !ok {
			return nil, "must be an array of strings"
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, fmt.Sprintf("item %d must be a non-empty string", i)
			}
			out = append(out, s)
		}
		return out, ""
	}
	return nil, fmt.Sprintf("has unsupported declared type %q", f.Type)
}

func (f Field) checkString(s string) (any, string) {
	if strings.TrimSpace(s) == "" {
		return nil, "must not be empty"
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return nil, fmt.Sprintf("must be at most %d characters", f.MaxLength)
	}
	if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
		return nil, fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", "))
	}
	return s, ""
}

func (f Field) checkBounds(v float64) string {
	if f.Min != nil {
		if f.ExclusiveMin && v <= *f.Min {
			return "must be greater than " + formatBound(*f.Min)
		}
		if !f.ExclusiveMin && v < *f.Min {
			return "must be at least " + formatBound(*f.Min)
		}
	}
	if f.Max != nil && v > *f.Max {
		return "must be at most " + formatBound(*f.Max)
	}
	return ""
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDateTime accepts RFC 3339 timestamps or bare dates (UTC midnight).
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date, got %q", s)
}

// schema renders the field as a JSON Schema property.
func (f Field) schema() *jsonschema.Schema {
	s := &jsonschema.Schema{Description: f.Description}

	switch f.Type {
	case TypeString:
		s.Type = "string"
		s.MinLength = intPtr(1)
		if f.MaxLength > 0 {
			s.MaxLength = intPtr(f.MaxLength)
		}
		for _, e := range f.Enum {
			s.Enum = append(s.Enum, e)
		}
	case TypeInteger:
		s.Type = "integer"
	case TypeNumber:
		s.Type = "number"
	case TypeBoolean:
		s.Type = "boolean"
	case TypeDate:
		s.Type = "string"
		s.Format = "date"
	case TypeDateTime:
		s.Type = "string"
		s.AnyOf = []*jsonschema.Schema{{Format: "date-time"}, {Format: "date"}}
	case TypeStringList:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string", MinLength: intPtr(1)}
	}

	if f.Min != nil {
		if f.ExclusiveMin {
			s.ExclusiveMinimum = Bound(*f.Min)
		} else {
			s.Minimum = Bound(*f.Min)
		}
	}
	if f.Max != nil {
		s.Maximum = Bound(*f.Max)
	}
	return s
}

func intPtr(n int) *int {
	return &n
}
