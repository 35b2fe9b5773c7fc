package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for hashing and snapshots.
//
// Differences from MarshalIRValue:
//  1. Strings (and object keys) are NFC normalized
//  2. No HTML escaping (< > & are written literally)
//  3. Only '"', '\\' and control characters are escaped
//
// Object keys are ordered by UTF-16 code units in both forms.
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonicalSeq renders a result sequence as a canonical JSON array.
func MarshalCanonicalSeq(values []IRValue) ([]byte, error) {
	return MarshalCanonical(IRArray(values))
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case IRString:
		writeCanonicalString(buf, string(val))
	case IRNode:
		writeCanonicalString(buf, string(val))
	case IRPlug:
		writeCanonicalString(buf, val.String())
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case IRRow:
		return writeCanonical(buf, val.Object())
	default:
		b, err := MarshalIRValue(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf.WriteString(`�`)
			} else {
				buf.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}

// quote is used by plan rendering where canonical escaping is wanted inline.
func quote(s string) string {
	var buf bytes.Buffer
	writeCanonicalString(&buf, s)
	return buf.String()
}

// Format renders a value compactly for logs and plan output.
func Format(v IRValue) string {
	switch val := v.(type) {
	case IRNode:
		return string(val)
	case IRPlug:
		return val.String()
	case IRString:
		return quote(string(val))
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	}
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
