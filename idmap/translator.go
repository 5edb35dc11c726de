// Package idmap translates between VM-internal function/class ids and
// symbolic, snapshot-resident offsets. Outside snapshot mode the
// translation is the identity; inside it, ids are resolved through a
// Mapping loaded from the snapshot's adjacent info file.
//
// Design note: the translator is modelled as a small closed set of
// implementations selected once at Initialize, rather than a pair of
// runtime-dispatched closures, so every translation site is a single
// interface call with no hidden indirection.
package idmap

// Translator converts between the ids the wire protocol carries and
// the ids the rest of the controller (and its caller) work with.
// Outbound call sites use FunctionID/ClassID; inbound decode call
// sites use SymbolicFunction/SymbolicClass (the reverse direction).
type Translator interface {
	FunctionID(symbolic int64) int64
	ClassID(symbolic int64) int64
	SymbolicFunction(vmID int64) int64
	SymbolicClass(vmID int64) int64
}

// Identity is the non-snapshot translator: every id passes through
// unchanged, matching "the compiler's current compilation system is
// used directly."
type Identity struct{}

func (Identity) FunctionID(symbolic int64) int64      { return symbolic }
func (Identity) ClassID(symbolic int64) int64         { return symbolic }
func (Identity) SymbolicFunction(vmID int64) int64    { return vmID }
func (Identity) SymbolicClass(vmID int64) int64       { return vmID }

// Offset is the snapshot-mode translator, backed by a loaded Mapping.
type Offset struct {
	mapping *Mapping
}

// NewOffset builds a snapshot-mode translator from a loaded Mapping.
func NewOffset(m *Mapping) Offset { return Offset{mapping: m} }

func (o Offset) FunctionID(symbolic int64) int64 {
	if vmID, ok := o.mapping.functionBySymbolic[symbolic]; ok {
		return vmID
	}
	return symbolic
}

func (o Offset) ClassID(symbolic int64) int64 {
	if vmID, ok := o.mapping.classBySymbolic[symbolic]; ok {
		return vmID
	}
	return symbolic
}

func (o Offset) SymbolicFunction(vmID int64) int64 {
	if symbolic, ok := o.mapping.functionByVMID[vmID]; ok {
		return symbolic
	}
	return vmID
}

func (o Offset) SymbolicClass(vmID int64) int64 {
	if symbolic, ok := o.mapping.classByVMID[vmID]; ok {
		return symbolic
	}
	return vmID
}
