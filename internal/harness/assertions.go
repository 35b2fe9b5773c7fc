package harness

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/querydoc"
)

// AssertionError describes one failed expectation.
type AssertionError struct {
	Query    string // query name
	Type     string // expectation kind
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Query, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect evaluates every expectation and returns one message per
// failure. execErr is the error from executing the query, if any.
func checkExpect(query string, e *Expect, res *querydoc.Result, execErr error) []string {
	var errs []error
	fail := func(kind, expected, actual string) {
		errs = append(errs, &AssertionError{Query: query, Type: kind, Expected: expected, Actual: actual})
	}

	switch {
	case execErr != nil && (e == nil || e.Error == ""):
		fail("error", "no error", execErr.Error())
	case e == nil:
	case e.Error != "" && execErr == nil:
		fail("error", fmt.Sprintf("error containing %q", e.Error), "query succeeded")
	case e.Error != "":
		if !strings.Contains(execErr.Error(), e.Error) {
			fail("error", fmt.Sprintf("error containing %q", e.Error), execErr.Error())
		}
	default:
		errs = append(errs, checkValues(query, e, res)...)
	}

	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func checkValues(query string, e *Expect, res *querydoc.Result) []error {
	var errs []error
	fail := func(kind, expected, actual string) {
		errs = append(errs, &AssertionError{Query: query, Type: kind, Expected: expected, Actual: actual})
	}
	actual := plainSeq(res.Values)

	if e.Equals != nil {
		expected, err := expectedSeq(e.Equals)
		if err != nil {
			fail("equals", "valid expected values", err.Error())
		} else if !seqEqual(expected, actual) {
			fail("equals", formatSeq(expected), formatSeq(actual))
		}
	}
	if e.Contains != nil {
		expected, err := expectedSeq(e.Contains)
		if err != nil {
			fail("contains", "valid expected values", err.Error())
		}
		for _, want := range expected {
			if !slices.ContainsFunc(actual, func(v ir.IRValue) bool { return ir.Equal(v, want) }) {
				fail("contains", ir.Format(want), formatSeq(actual))
			}
		}
	}
	if e.Count != nil && len(actual) != *e.Count {
		fail("count", fmt.Sprintf("%d elements", *e.Count), fmt.Sprintf("%d elements", len(actual)))
	}
	if e.Empty && len(actual) != 0 {
		fail("empty", "no elements", formatSeq(actual))
	}
	if e.Groups != nil {
		errs = append(errs, checkGroups(query, e.Groups, res)...)
	}
	return errs
}

// checkGroups compares group keys by their text form since YAML mapping
// keys are strings.
func checkGroups(query string, want map[string][]any, res *querydoc.Result) []error {
	fail := func(expected, actual string) error {
		return &AssertionError{Query: query, Type: "groups", Expected: expected, Actual: actual}
	}
	if res.Groups == nil {
		return []error{fail("grouped result", "query has no group_by")}
	}

	got := make(map[string][]ir.IRValue, res.Groups.Len())
	var gotKeys []string
	for _, g := range res.Groups.Groups() {
		k := keyText(g.Key)
		got[k] = plainSeq(g.Members)
		gotKeys = append(gotKeys, k)
	}

	var errs []error
	wantKeys := make([]string, 0, len(want))
	for k := range want {
		wantKeys = append(wantKeys, k)
	}
	slices.Sort(wantKeys)
	for _, k := range wantKeys {
		members, ok := got[k]
		if !ok {
			errs = append(errs, fail(fmt.Sprintf("group %q", k), fmt.Sprintf("groups %v", gotKeys)))
			continue
		}
		expected, err := expectedSeq(want[k])
		if err != nil {
			errs = append(errs, fail("valid expected values", err.Error()))
			continue
		}
		if !seqEqual(expected, members) {
			errs = append(errs, fail(fmt.Sprintf("group %q = %s", k, formatSeq(expected)), formatSeq(members)))
		}
	}
	if len(got) != len(want) {
		errs = append(errs, fail(fmt.Sprintf("%d groups", len(want)), fmt.Sprintf("%d groups %v", len(got), gotKeys)))
	}
	return errs
}

// keyText renders a group key as a YAML mapping key would spell it, with
// integral floats written without a fraction.
func keyText(v ir.IRValue) string {
	if f, ok := v.(ir.IRFloat); ok && math.Trunc(float64(f)) == float64(f) && math.Abs(float64(f)) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return ir.Text(v)
}

// plainSeq renders results the way YAML writes them: nodes and plugs become
// strings and rows become objects.
func plainSeq(values []ir.IRValue) []ir.IRValue {
	out := make([]ir.IRValue, len(values))
	for i, v := range values {
		p, err := ir.FromAny(ir.ToAny(v))
		if err != nil {
			p = v
		}
		out[i] = p
	}
	return out
}

func expectedSeq(values []any) ([]ir.IRValue, error) {
	out := make([]ir.IRValue, len(values))
	for i, v := range values {
		conv, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

func seqEqual(a, b []ir.IRValue) bool {
	return slices.EqualFunc(a, b, ir.Equal)
}

func formatSeq(values []ir.IRValue) string {
	return ir.Format(ir.IRArray(values))
}
