package idmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/vmdbg/vmerr"
)

// NameOffsetMapping is the decoded shape of the snapshot's adjacent
// <snapshot>.info.json, per spec.md §6. The function/class maps are
// name-keyed in the file (the snapshot's own symbol table) but are
// folded into id-keyed lookup tables by Mapping for fast translation.
type NameOffsetMapping struct {
	SnapshotHash   uint64           `json:"snapshot_hash"`
	FunctionOffsets map[string]int64 `json:"function_offsets"`
	ClassOffsets    map[string]int64 `json:"class_offsets"`
}

// Mapping is the immutable, id-keyed form of a NameOffsetMapping built
// during Initialize. Once built it never changes for the lifetime of
// the session (spec.md §3: "Immutable after initialize").
type Mapping struct {
	SnapshotHash uint64

	functionBySymbolic map[int64]int64
	functionByVMID     map[int64]int64
	classBySymbolic    map[int64]int64
	classByVMID        map[int64]int64
}

// BuildMapping folds a decoded NameOffsetMapping plus the VM-reported
// function/class id tables (keyed by the same symbol names) into a
// Mapping with id-to-id lookups in both directions.
//
// vmFunctionIDs and vmClassIDs are keyed by the same names the info
// file uses; a name present on only one side is simply skipped, since
// the loaded system may lag or lead the snapshot by a recompile.
func BuildMapping(info NameOffsetMapping, vmFunctionIDs, vmClassIDs map[string]int64) *Mapping {
	m := &Mapping{
		SnapshotHash:       info.SnapshotHash,
		functionBySymbolic: make(map[int64]int64, len(info.FunctionOffsets)),
		functionByVMID:     make(map[int64]int64, len(info.FunctionOffsets)),
		classBySymbolic:    make(map[int64]int64, len(info.ClassOffsets)),
		classByVMID:        make(map[int64]int64, len(info.ClassOffsets)),
	}
	for name, symbolic := range info.FunctionOffsets {
		if vmID, ok := vmFunctionIDs[name]; ok {
			m.functionBySymbolic[symbolic] = vmID
			m.functionByVMID[vmID] = symbolic
		}
	}
	for name, symbolic := range info.ClassOffsets {
		if vmID, ok := vmClassIDs[name]; ok {
			m.classBySymbolic[symbolic] = vmID
			m.classByVMID[vmID] = symbolic
		}
	}
	return m
}

// InfoPathFor derives the <snapshot>.info.json path adjacent to a
// snapshot location. If snapshotLocation is empty, it returns the
// relative path "snapshot.info.json", resolved against the current
// working directory.
func InfoPathFor(snapshotLocation string) string {
	if snapshotLocation == "" {
		return "snapshot.info.json"
	}
	ext := filepath.Ext(snapshotLocation)
	base := strings.TrimSuffix(snapshotLocation, ext)
	return base + ".info.json"
}

// LoadNameOffsetMapping reads and decodes the info file at path.
func LoadNameOffsetMapping(path string) (NameOffsetMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NameOffsetMapping{}, fmt.Errorf("%w: %s", vmerr.ErrInfoFileNotFound, path)
		}
		return NameOffsetMapping{}, err
	}
	var m NameOffsetMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return NameOffsetMapping{}, fmt.Errorf("%w: %s: %v", vmerr.ErrMalformedInfoFile, path, err)
	}
	return m, nil
}
