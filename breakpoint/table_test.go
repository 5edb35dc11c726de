package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableAddGetDelete(t *testing.T) {
	tbl := NewTable()

	bp := tbl.Add(7, FunctionRef{ID: 17, Name: "main"}, 4, false)
	assert.Equal(t, int64(7), bp.ID, "breakpoints[id].id == id invariant")
	assert.Equal(t, 1, tbl.Count())

	got := tbl.Get(7)
	assert.Same(t, bp, got)

	removed := tbl.Delete(7)
	assert.Same(t, bp, removed)
	assert.Nil(t, tbl.Get(7))
	assert.Equal(t, 0, tbl.Count())
}

func TestTableDeleteMissing(t *testing.T) {
	tbl := NewTable()
	assert.Nil(t, tbl.Delete(42))
}

func TestTableClear(t *testing.T) {
	tbl := NewTable()
	tbl.Add(1, FunctionRef{}, 0, false)
	tbl.Add(2, FunctionRef{}, 0, true)
	assert.Equal(t, 2, tbl.Count())

	tbl.Clear()
	assert.Equal(t, 0, tbl.Count())
	assert.Empty(t, tbl.All())
}

func TestErrNotFoundMessage(t *testing.T) {
	err := &ErrNotFound{ID: 9}
	assert.Contains(t, err.Error(), "9")
}
