package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityPassesThrough(t *testing.T) {
	id := Identity{}
	assert.Equal(t, int64(42), id.FunctionID(42))
	assert.Equal(t, int64(42), id.ClassID(42))
	assert.Equal(t, int64(42), id.SymbolicFunction(42))
	assert.Equal(t, int64(42), id.SymbolicClass(42))
}

func TestOffsetRoundTrips(t *testing.T) {
	info := NameOffsetMapping{
		SnapshotHash:    0xAAAA,
		FunctionOffsets: map[string]int64{"main": 100, "helper": 101},
		ClassOffsets:    map[string]int64{"Foo": 200},
	}
	vmFunctionIDs := map[string]int64{"main": 9001, "helper": 9002}
	vmClassIDs := map[string]int64{"Foo": 9101}

	mapping := BuildMapping(info, vmFunctionIDs, vmClassIDs)
	tr := NewOffset(mapping)

	assert.Equal(t, int64(9001), tr.FunctionID(100))
	assert.Equal(t, int64(100), tr.SymbolicFunction(9001))
	assert.Equal(t, int64(9101), tr.ClassID(200))
	assert.Equal(t, int64(200), tr.SymbolicClass(9101))
}

func TestOffsetFallsBackToIdentityForUnknownIDs(t *testing.T) {
	mapping := BuildMapping(NameOffsetMapping{}, nil, nil)
	tr := NewOffset(mapping)

	assert.Equal(t, int64(555), tr.FunctionID(555))
	assert.Equal(t, int64(555), tr.SymbolicFunction(555))
}

func TestBuildMappingSkipsNamesMissingOnEitherSide(t *testing.T) {
	info := NameOffsetMapping{FunctionOffsets: map[string]int64{"onlyInInfo": 1}}
	mapping := BuildMapping(info, map[string]int64{"onlyInVM": 2}, nil)
	tr := NewOffset(mapping)

	// Neither name is known on both sides, so every lookup falls back to identity.
	assert.Equal(t, int64(1), tr.FunctionID(1))
}

func TestInfoPathFor(t *testing.T) {
	assert.Equal(t, "snapshot.info.json", InfoPathFor(""))
	assert.Equal(t, "/tmp/app.info.json", InfoPathFor("/tmp/app.snapshot"))
}

func TestCellSwapsBothDirections(t *testing.T) {
	cell := NewCell()
	assert.Equal(t, int64(5), cell.FunctionID(5), "identity before Set")

	mapping := BuildMapping(
		NameOffsetMapping{FunctionOffsets: map[string]int64{"f": 1}},
		map[string]int64{"f": 900},
		nil,
	)
	cell.Set(NewOffset(mapping))

	assert.Equal(t, int64(900), cell.FunctionID(1))
	assert.Equal(t, int64(1), cell.SymbolicFunction(900))
}
