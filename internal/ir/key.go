package ir

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// Key returns the canonical identity of a value. Two values are equal for
// set algebra, dedup, grouping and membership iff their keys are equal.
//
// Integral floats share the key of the matching IRInt, so 1 == 1.0. Nodes,
// plugs and strings with the same text all have distinct keys.
func Key(v IRValue) string {
	var sb strings.Builder
	writeKey(&sb, v)
	return sb.String()
}

func writeKey(sb *strings.Builder, v IRValue) {
	switch val := v.(type) {
	case nil, IRNull:
		sb.WriteString("z")
	case IRBool:
		if val {
			sb.WriteString("b1")
		} else {
			sb.WriteString("b0")
		}
	case IRInt:
		sb.WriteString("n")
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case IRFloat:
		f := float64(val)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			sb.WriteString("n")
			sb.WriteString(strconv.FormatInt(int64(f), 10))
			return
		}
		sb.WriteString("f")
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case IRString:
		writeTagged(sb, 's', string(val))
	case IRNode:
		writeTagged(sb, 'o', string(val))
	case IRPlug:
		writeTagged(sb, 'p', val.String())
	case IRArray:
		sb.WriteString("a")
		sb.WriteString(strconv.Itoa(len(val)))
		sb.WriteByte('[')
		for _, elem := range val {
			writeKey(sb, elem)
			sb.WriteByte(';')
		}
		sb.WriteByte(']')
	case IRObject:
		sb.WriteString("m")
		sb.WriteString(strconv.Itoa(len(val)))
		sb.WriteByte('{')
		for _, k := range val.SortedKeys() {
			writeTagged(sb, 'k', k)
			writeKey(sb, val[k])
			sb.WriteByte(';')
		}
		sb.WriteByte('}')
	case IRRow:
		sb.WriteString("r(")
		writeKey(sb, val.Index)
		for i, n := range val.Names {
			sb.WriteByte(';')
			writeTagged(sb, 'k', n)
			writeKey(sb, val.Values[i])
		}
		sb.WriteByte(')')
	}
}

// writeTagged writes a length-prefixed string so nested keys stay unambiguous.
func writeTagged(sb *strings.Builder, tag byte, s string) {
	sb.WriteByte(tag)
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}

// Equal reports natural equality of two values.
func Equal(a, b IRValue) bool {
	return Key(a) == Key(b)
}

// Compare orders two values. ok is false when the values have no natural
// ordering relative to each other: mixed kinds, booleans, containers, nulls.
// Ints and floats compare numerically; strings, nodes and plugs compare by
// their text within their own kind.
func Compare(a, b IRValue) (c int, ok bool) {
	if fa, isNum := number(a); isNum {
		fb, isNumB := number(b)
		if !isNumB {
			return 0, false
		}
		if ia, aInt := a.(IRInt); aInt {
			if ib, bInt := b.(IRInt); bInt {
				return cmp.Compare(ia, ib), true
			}
		}
		return cmp.Compare(fa, fb), true
	}
	switch va := a.(type) {
	case IRString:
		if vb, isStr := b.(IRString); isStr {
			return strings.Compare(string(va), string(vb)), true
		}
	case IRNode:
		if vb, isNode := b.(IRNode); isNode {
			return strings.Compare(string(va), string(vb)), true
		}
	case IRPlug:
		if vb, isPlug := b.(IRPlug); isPlug {
			return strings.Compare(va.String(), vb.String()), true
		}
	}
	return 0, false
}

func number(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRFloat:
		return float64(n), true
	}
	return 0, false
}

// Truthy reports whether a value counts as true for any/all aggregation and
// for callable predicates. Null, false, zero, the empty string and empty
// containers are false; nodes, plugs and rows are always true.
func Truthy(v IRValue) bool {
	switch val := v.(type) {
	case nil, IRNull:
		return false
	case IRBool:
		return bool(val)
	case IRInt:
		return val != 0
	case IRFloat:
		return val != 0
	case IRString:
		return val != ""
	case IRArray:
		return len(val) > 0
	case IRObject:
		return len(val) > 0
	default:
		return true
	}
}
