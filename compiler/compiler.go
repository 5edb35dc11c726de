// Package compiler declares the interface to the bytecode compiler and
// its incremental delta producer: an external collaborator per
// spec.md §1/§6, consumed only through this interface. No
// implementation ships in this module.
package compiler

import "github.com/lookbusy1344/vmdbg/command"

// Position is an opaque bytecode position returned by PositionInFile /
// PositionInFileFromPattern, consumed only by DebugInfoForPosition.
type Position struct {
	Offset int
	Valid  bool
}

// DebugInfo resolves a source position to a concrete function and
// bytecode index.
type DebugInfo struct {
	FunctionID    int64
	BytecodeIndex int
}

// Library describes one loaded library as exposed by
// Compiler.Libraries (mirrors libraryLoader.libraries from spec.md §6).
type Library struct {
	URI string
}

// System is the compiler's current compilation result: the set of
// loaded functions/classes the controller resolves ids against. An
// opaque handle from the controller's point of view; compiler
// implementations decide its shape.
type System any

// CompilationDelta is a compiler-produced, opaque incremental update:
// an ordered command list plus the resulting system snapshot
// (spec.md §1, "Delta" in the glossary).
type CompilationDelta struct {
	Commands []command.GenericSafe
	System   System
}

// Compiler is the out-of-scope collaborator consumed by Initialize and
// SetFileBreakpoint.
type Compiler interface {
	PositionInFile(uri string, line, col int) (Position, bool)
	PositionInFileFromPattern(uri string, line int, pattern string) (Position, bool)
	DebugInfoForPosition(uri string, pos Position, system System) (DebugInfo, bool)
	FindSourceFiles(pattern string) ([]string, error)
	Libraries() []Library

	// PendingDeltas returns the compilation deltas produced since the
	// last call, in application order. Initialize applies each one in
	// turn via the generic engine before spawning the process.
	PendingDeltas() []CompilationDelta
}
