package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	// Verify all types implement IRValue (compile-time check via assignment)
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(1.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
	var _ IRValue = IRNode("persp")
	var _ IRValue = IRPlug{Node: "persp", Attr: "tx"}
	var _ IRValue = IRRow{Index: IRNode("persp")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FF5E in UTF-16 but after it in UTF-8.
	obj := IRObject{
		"\U0001F600": IRInt(1),
		"～":          IRInt(2),
	}

	assert.Equal(t, []string{"\U0001F600", "～"}, obj.SortedKeys())
}

func TestNodeNamespace(t *testing.T) {
	tests := []struct {
		node      IRNode
		namespace []string
		short     string
	}{
		{"persp", nil, "persp"},
		{"chars:hero", []string{"chars"}, "hero"},
		{"chars:hero:bodyShape", []string{"chars", "hero"}, "bodyShape"},
	}

	for _, tt := range tests {
		t.Run(string(tt.node), func(t *testing.T) {
			assert.Equal(t, tt.namespace, tt.node.Namespace())
			assert.Equal(t, tt.short, tt.node.ShortName())
		})
	}
}

func TestParsePlug(t *testing.T) {
	p, err := ParsePlug("perspShape.focalLength")
	require.NoError(t, err)
	assert.Equal(t, IRPlug{Node: "perspShape", Attr: "focalLength"}, p)
	assert.Equal(t, "perspShape.focalLength", p.String())

	for _, bad := range []string{"", "persp", ".tx", "persp."} {
		_, err := ParsePlug(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestMarshalIRValue(t *testing.T) {
	tests := []struct {
		name  string
		value IRValue
		want  string
	}{
		{"null", IRNull{}, `null`},
		{"string escapes html", IRString("a<b"), `"a\u003cb"`},
		{"int", IRInt(-7), `-7`},
		{"integral float keeps decimal", IRFloat(35), `35.0`},
		{"float", IRFloat(0.25), `0.25`},
		{"bool", IRBool(true), `true`},
		{"node", IRNode("persp"), `"persp"`},
		{"plug", IRPlug{Node: "persp", Attr: "tx"}, `"persp.tx"`},
		{"array", IRArray{IRInt(1), IRNode("a")}, `[1,"a"]`},
		{"object sorted", IRObject{"b": IRInt(2), "a": IRInt(1)}, `{"a":1,"b":2}`},
		{"row", IRRow{Index: IRNode("X"), Names: []string{"vals"}, Values: []IRValue{IRArray{IRInt(1)}}}, `{"index":"X","vals":[1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalIRValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalIRValueRejectsNonFinite(t *testing.T) {
	_, err := MarshalIRValue(IRFloat(math.Inf(1)))
	assert.Error(t, err)

	_, err = MarshalIRValue(IRArray{IRFloat(math.NaN())})
	assert.Error(t, err)
}

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":1,"b":1.5,"c":[true,null,"x"],"d":2e3}`))
	require.NoError(t, err)

	want := IRObject{
		"a": IRInt(1),
		"b": IRFloat(1.5),
		"c": IRArray{IRBool(true), IRNull{}, IRString("x")},
		"d": IRFloat(2000),
	}
	assert.Equal(t, want, v)
}

func TestFromAnyAndBack(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    int64(3),
		"f":    float64(0.5),
		"list": []any{"a", true},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"f":    0.5,
		"list": []any{"a", true},
	}, ToAny(v))
}

func TestFromAnyUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	assert.Equal(t, "persp", Text(IRNode("persp")))
	assert.Equal(t, "persp.tx", Text(IRPlug{Node: "persp", Attr: "tx"}))
	assert.Equal(t, "raw", Text(IRString("raw")))
	assert.Equal(t, "12", Text(IRInt(12)))
}
