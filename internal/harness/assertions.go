package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/factview/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, displayPath(e.Path))
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func displayPath(p string) string {
	if p == "" {
		return "<view>"
	}
	return p
}

// segment is one dotted path element: a field name followed by zero or
// more list indexes.
type segment struct {
	name    string
	indexes []int
}

// parsePath splits "a.b[0][1].c" into segments.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}
	var segs []segment
	for _, part := range strings.Split(path, ".") {
		name, rest, indexed := strings.Cut(part, "[")
		if name == "" {
			return nil, fmt.Errorf("invalid path %q: empty field name", path)
		}
		seg := segment{name: name}
		for indexed {
			num, tail, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("invalid path %q: unclosed index", path)
			}
			i, err := strconv.Atoi(num)
			if err != nil || i < 0 {
				return nil, fmt.Errorf("invalid path %q: bad index %q", path, num)
			}
			seg.indexes = append(seg.indexes, i)
			if tail == "" {
				break
			}
			if !strings.HasPrefix(tail, "[") {
				return nil, fmt.Errorf("invalid path %q: unexpected %q", path, tail)
			}
			rest = tail[1:]
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// lookup resolves path against a normalized view value.
func lookup(v any, path string) (any, bool) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	for _, seg := range segs {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[seg.name]; !ok {
			return nil, false
		}
		for _, i := range seg.indexes {
			list, ok := v.([]any)
			if !ok || i >= len(list) {
				return nil, false
			}
			v = list[i]
		}
	}
	return v, true
}

// EvaluateAssertion checks one assertion against a normalized view value.
func EvaluateAssertion(view any, a Assertion) error {
	actual, found := lookup(view, a.Path)

	if a.Type == AssertAbsent {
		if found {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "no value", Actual: render(actual)}
		}
		return nil
	}
	if !found {
		return &AssertionError{Type: a.Type, Path: a.Path, Expected: "a value", Actual: "path not found"}
	}

	switch a.Type {
	case AssertEquals:
		if !sameValue(actual, a.Value) {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: render(a.Value), Actual: render(actual)}
		}

	case AssertCount:
		list, ok := actual.([]any)
		if !ok {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "a list", Actual: render(actual)}
		}
		if len(list) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Path:     a.Path,
				Expected: fmt.Sprintf("%d entries", a.Count),
				Actual:   fmt.Sprintf("%d entries: %s", len(list), render(list)),
			}
		}

	case AssertOrder:
		list, ok := actual.([]any)
		if !ok {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "a list", Actual: render(actual)}
		}
		got := make([]any, 0, len(list))
		for _, entry := range list {
			v, _ := lookup(entry, a.Field)
			got = append(got, v)
		}
		want := a.Values
		if want == nil {
			want = []any{}
		}
		if !sameValue(got, want) {
			return &AssertionError{
				Type:     a.Type,
				Path:     a.Path,
				Expected: fmt.Sprintf("%s = %s", a.Field, render(want)),
				Actual:   fmt.Sprintf("%s = %s", a.Field, render(got)),
			}
		}

	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, prefixed with where.
func EvaluateAssertions(view any, assertions []Assertion, where string) []string {
	var errs []string
	for i, a := range assertions {
		if err := EvaluateAssertion(view, a); err != nil {
			errs = append(errs, fmt.Sprintf("%s[%d]: %v", where, i, err))
		}
	}
	return errs
}

// sameValue compares by canonical JSON, so int and int64 agree and map
// order does not matter.
func sameValue(a, b any) bool {
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func render(v any) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
