package recordset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *RecordSet {
	t.Helper()
	rs, err := FromRows(
		[]string{"A", "B", "C"},
		[][]string{{"a1", "b1", "c1"}, {"a2", "b2"}},
	)
	require.NoError(t, err)
	return rs
}

func TestFromRows(t *testing.T) {
	rs := sample(t)

	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 3, rs.Width())
	assert.Equal(t, "", rs.Get(1, "C"), "short rows are padded")
	assert.NoError(t, rs.Validate())

	_, err := FromRows([]string{"A"}, [][]string{{"1", "2"}})
	assert.Error(t, err)

	_, err = New([]string{"A", "A"})
	assert.ErrorIs(t, err, ErrColumnExists)
}

func TestInsertAfter(t *testing.T) {
	rs := sample(t)

	require.NoError(t, rs.InsertAfter("A", "X", "x"))
	assert.Equal(t, []string{"A", "X", "B", "C"}, rs.Columns())
	assert.Equal(t, []string{"a1", "x", "b1", "c1"}, rs.Row(0))
	assert.Equal(t, 1, rs.Index("X"))
	assert.Equal(t, 2, rs.Index("B"))

	assert.ErrorIs(t, rs.InsertAfter("missing", "Y", ""), ErrColumnNotFound)
	assert.ErrorIs(t, rs.InsertAfter("A", "X", ""), ErrColumnExists)
}

func TestAppend(t *testing.T) {
	rs := sample(t)

	require.NoError(t, rs.Append("Z", ""))
	assert.Equal(t, []string{"A", "B", "C", "Z"}, rs.Columns())
	assert.Equal(t, []string{"", ""}, rs.Values("Z"))
}

func TestMoveBefore(t *testing.T) {
	rs := sample(t)

	require.NoError(t, rs.MoveBefore("C", "A"))
	assert.Equal(t, []string{"C", "A", "B"}, rs.Columns())
	assert.Equal(t, []string{"c1", "a1", "b1"}, rs.Row(0))
	assert.Equal(t, "b2", rs.Get(1, "B"))
	assert.NoError(t, rs.Validate())

	require.NoError(t, rs.MoveBefore("A", "B"), "already before is a no-op layout")
	assert.Equal(t, []string{"C", "A", "B"}, rs.Columns())

	assert.ErrorIs(t, rs.MoveBefore("nope", "A"), ErrColumnNotFound)
}

func TestDrop(t *testing.T) {
	rs := sample(t)

	dropped := rs.Drop("B", "missing", "B")
	assert.Equal(t, []string{"B"}, dropped)
	assert.Equal(t, []string{"A", "C"}, rs.Columns())
	assert.Equal(t, []string{"a1", "c1"}, rs.Row(0))
	assert.Nil(t, rs.Drop("missing"))
}

func TestCloneIsIndependent(t *testing.T) {
	rs := sample(t)

	clone, err := rs.Clone()
	require.NoError(t, err)

	clone.Set(0, "A", "changed")
	require.NoError(t, clone.Append("D", ""))

	assert.Equal(t, "a1", rs.Get(0, "A"))
	assert.False(t, rs.Has("D"))
}

func TestFillAndMapCells(t *testing.T) {
	rs := sample(t)

	rs.Fill("B", "-")
	assert.Equal(t, []string{"-", "-"}, rs.Values("B"))

	rs.MapCells(func(s string) string {
		if s == "" {
			return "empty"
		}
		return s
	})
	assert.Equal(t, "empty", rs.Get(1, "C"))
	assert.Nil(t, rs.Values("missing"))
}
