package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowFieldAccess(t *testing.T) {
	row := IRRow{
		Index:  IRNode("persp"),
		Names:  []string{"focal", "tx"},
		Values: []IRValue{IRFloat(35), IRInt(10)},
	}

	v, ok := row.Field("focal")
	require.True(t, ok)
	assert.Equal(t, IRFloat(35), v)

	v, ok = row.Field("index")
	require.True(t, ok)
	assert.Equal(t, IRNode("persp"), v)

	_, ok = row.Field("missing")
	assert.False(t, ok)

	v, err := row.At(1)
	require.NoError(t, err)
	assert.Equal(t, IRInt(10), v)

	_, err = row.At(2)
	assert.Error(t, err)
}

func TestRowsToMap(t *testing.T) {
	rows := []IRValue{
		IRRow{Index: IRNode("X"), Names: []string{"vals"}, Values: []IRValue{IRArray{IRInt(1)}}},
		IRRow{Index: IRNode("Y"), Names: []string{"vals"}, Values: []IRValue{IRArray{IRInt(2)}}},
	}

	m, err := RowsToMap(rows)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []IRValue{IRNode("X"), IRNode("Y")}, m.Keys)
	v, ok := m.Get(IRNode("Y"))
	require.True(t, ok)
	assert.Equal(t, IRArray{IRInt(2)}, v)
}

func TestRowsToMapMultiField(t *testing.T) {
	rows := []IRValue{
		IRRow{Index: IRNode("X"), Names: []string{"a", "b"}, Values: []IRValue{IRInt(1), IRInt(2)}},
	}

	m, err := RowsToMap(rows)
	require.NoError(t, err)

	v, _ := m.Get(IRNode("X"))
	assert.Equal(t, IRObject{"a": IRInt(1), "b": IRInt(2)}, v)
}

func TestRowsToMapRejectsNonRows(t *testing.T) {
	_, err := RowsToMap([]IRValue{IRNode("X")})
	assert.Error(t, err)
}
