package command

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lookbusy1344/vmdbg/idmap"
)

// Inbound is a frame decoded from the VM. Concrete variants mirror the
// wire shapes in spec.md §3; FunctionID/ClassID-bearing fields are
// already translated to symbolic offsets: Decode reverse-applies the
// idmap.Translator it is given while decoding them.
type Inbound interface {
	Code() Code
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("vmdbg: negative byte length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ConnectionError is the sentinel inbound command synthesized when the
// frame stream terminates unexpectedly. It carries no payload.
type ConnectionError struct{}

func (ConnectionError) Code() Code { return CodeConnectionError }

// HandShakeResult is the reply to HandShake.
type HandShakeResult struct{ Version string }

func (HandShakeResult) Code() Code { return CodeHandShakeResult }

// DebuggingReply is the reply to Debugging, describing whether the VM
// is running from a pre-serialized snapshot.
type DebuggingReply struct {
	IsFromSnapshot bool
	SnapshotHash   uint64
}

func (DebuggingReply) Code() Code { return CodeDebuggingReply }

// ProcessBreakpoint signals a breakpoint hit.
type ProcessBreakpoint struct {
	ProcessID     int64
	BreakpointID  int64
	FunctionID    int64
	BytecodeIndex int
}

func (ProcessBreakpoint) Code() Code { return CodeProcessBreakpoint }

// ProcessSetBreakpoint is the reply to ProcessSetBreakpoint, carrying
// the VM-assigned breakpoint id.
type ProcessSetBreakpoint struct{ Value int64 }

func (ProcessSetBreakpoint) Code() Code { return CodeProcessSetBreakpoint }

// ProcessDeleteBreakpoint acknowledges a breakpoint deletion.
type ProcessDeleteBreakpoint struct{ ID int64 }

func (ProcessDeleteBreakpoint) Code() Code { return CodeProcessDeleteBreakpoint }

// ProcessBacktrace is the reply to ProcessBacktraceRequest.
type ProcessBacktrace struct {
	Frames          int
	FunctionIDs     []int64
	BytecodeIndices []int64
}

func (ProcessBacktrace) Code() Code { return CodeProcessBacktrace }

// ProcessNumberOfStacks reports the number of fibers registered by
// ProcessAddFibersToMap.
type ProcessNumberOfStacks struct{ Value int }

func (ProcessNumberOfStacks) Code() Code { return CodeProcessNumberOfStacks }

// ProcessGetProcessIdsResult enumerates live process ids.
type ProcessGetProcessIdsResult struct{ IDs []int64 }

func (ProcessGetProcessIdsResult) Code() Code { return CodeProcessGetProcessIdsResult }

// UncaughtException signals that the debuggee raised without a
// handler.
type UncaughtException struct {
	ProcessID     int64
	FunctionID    int64
	BytecodeIndex int
}

func (UncaughtException) Code() Code { return CodeUncaughtException }

// ProcessCompileTimeError signals a compile-time error surfaced at run
// time (e.g. a late-bound syntax error in a lazily compiled method).
type ProcessCompileTimeError struct{}

func (ProcessCompileTimeError) Code() Code { return CodeProcessCompileTimeError }

// ProcessTerminated signals clean process exit.
type ProcessTerminated struct{}

func (ProcessTerminated) Code() Code { return CodeProcessTerminated }

// StdoutData carries a chunk of the debuggee's standard output.
type StdoutData struct{ Bytes []byte }

func (StdoutData) Code() Code { return CodeStdoutData }

// StderrData carries a chunk of the debuggee's standard error.
type StderrData struct{ Bytes []byte }

func (StderrData) Code() Code { return CodeStderrData }

// ValueKind discriminates the primitive payload carried by a DartValue.
type ValueKind byte

const (
	ValueKindNull ValueKind = iota
	ValueKindBool
	ValueKindInt
	ValueKindDouble
	ValueKindString
)

// DartValue is a leaf remote value echoed back by the VM (a primitive,
// not an object reference).
type DartValue struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Double float64
	String string
}

func (DartValue) Code() Code { return CodeDartValue }

// InstanceStructure announces an object reference; the caller must
// read exactly FieldCount further frames as its fields.
type InstanceStructure struct {
	ClassID    int64
	FieldCount int
}

func (InstanceStructure) Code() Code { return CodeInstanceStructure }

// ArrayStructure announces an array reference; the caller must read
// exactly End-Start further frames as its elements.
type ArrayStructure struct{ Start, End int }

func (ArrayStructure) Code() Code { return CodeArrayStructure }

// ProgramInfoCommand carries the VM's function/class table as a JSON
// payload of shape {"functions":[...],"classes":[...]}, so a live
// (non-snapshot) session can resolve names without a local file. This
// is not the on-disk info file's shape (snapshot_hash,
// function_offsets, class_offsets) that idmap.LoadNameOffsetMapping
// reads.
type ProgramInfoCommand struct{ Raw []byte }

func (ProgramInfoCommand) Code() Code { return CodeProgramInfo }

// ProgramFunctionEntry is one function table row: a VM-assigned id,
// its symbolic name, and whether backtraces should show its frames by
// default.
type ProgramFunctionEntry struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// ProgramClassEntry is one class table row.
type ProgramClassEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// programInfoPayload is the wire JSON shape of ProgramInfoCommand.Raw.
type programInfoPayload struct {
	Functions []ProgramFunctionEntry `json:"functions"`
	Classes   []ProgramClassEntry    `json:"classes"`
}

// Decode parses Raw into its function/class table rows.
func (c ProgramInfoCommand) Decode() ([]ProgramFunctionEntry, []ProgramClassEntry, error) {
	var payload programInfoPayload
	if err := json.Unmarshal(c.Raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("vmdbg: decode ProgramInfo: %w", err)
	}
	return payload.Functions, payload.Classes, nil
}

// CreateSnapshotResult is the reply to CreateSnapshot, carrying the
// path the VM wrote the new snapshot to. It reuses CodeCreateSnapshot:
// like ProcessSetBreakpoint/ProcessDeleteBreakpoint, the reply shares
// its request's code rather than getting a dedicated inbound-only one.
type CreateSnapshotResult struct{ Location string }

func (CreateSnapshotResult) Code() Code { return CodeCreateSnapshot }

// Decode parses the payload for the given code into a typed Inbound
// value. tr is applied to reverse-translate any function/class id
// fields back to symbolic offsets when running against a snapshot.
func Decode(code Code, payload []byte, tr idmap.Translator) (Inbound, error) {
	r := newByteReader(payload)
	switch code {
	case CodeConnectionError:
		return ConnectionError{}, nil
	case CodeHandShakeResult:
		v, err := readString(r)
		return HandShakeResult{Version: v}, err
	case CodeDebuggingReply:
		snapshot, err := readBool(r)
		if err != nil {
			return nil, err
		}
		hash, err := readUint64(r)
		return DebuggingReply{IsFromSnapshot: snapshot, SnapshotHash: hash}, err
	case CodeProcessBreakpoint:
		pid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		bpid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		fid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		bci, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		return ProcessBreakpoint{ProcessID: pid, BreakpointID: bpid, FunctionID: tr.SymbolicFunction(fid), BytecodeIndex: int(bci)}, nil
	case CodeProcessSetBreakpoint:
		v, err := readInt64(r)
		return ProcessSetBreakpoint{Value: v}, err
	case CodeProcessDeleteBreakpoint:
		v, err := readInt64(r)
		return ProcessDeleteBreakpoint{ID: v}, err
	case CodeProcessBacktrace:
		frames, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		fids := make([]int64, frames)
		bcis := make([]int64, frames)
		for i := range fids {
			v, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			fids[i] = tr.SymbolicFunction(v)
		}
		for i := range bcis {
			v, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			bcis[i] = v
		}
		return ProcessBacktrace{Frames: int(frames), FunctionIDs: fids, BytecodeIndices: bcis}, nil
	case CodeProcessNumberOfStacks:
		v, err := readInt32(r)
		return ProcessNumberOfStacks{Value: int(v)}, err
	case CodeProcessGetProcessIdsResult:
		n, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, n)
		for i := range ids {
			v, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			ids[i] = v
		}
		return ProcessGetProcessIdsResult{IDs: ids}, nil
	case CodeUncaughtException:
		pid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		fid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		bci, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		return UncaughtException{ProcessID: pid, FunctionID: tr.SymbolicFunction(fid), BytecodeIndex: int(bci)}, nil
	case CodeProcessCompileTimeError:
		return ProcessCompileTimeError{}, nil
	case CodeProcessTerminated:
		return ProcessTerminated{}, nil
	case CodeStdoutData:
		b, err := readBytes(r)
		return StdoutData{Bytes: b}, err
	case CodeStderrData:
		b, err := readBytes(r)
		return StderrData{Bytes: b}, err
	case CodeDartValue:
		return decodeDartValue(r)
	case CodeInstanceStructure:
		cid, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		n, err := readInt32(r)
		return InstanceStructure{ClassID: tr.SymbolicClass(cid), FieldCount: int(n)}, err
	case CodeArrayStructure:
		start, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		end, err := readInt32(r)
		return ArrayStructure{Start: int(start), End: int(end)}, err
	case CodeProgramInfo:
		return ProgramInfoCommand{Raw: payload}, nil
	case CodeCreateSnapshot:
		v, err := readString(r)
		return CreateSnapshotResult{Location: v}, err
	default:
		return nil, fmt.Errorf("vmdbg: unknown inbound code %s", code)
	}
}

func decodeDartValue(r io.Reader) (Inbound, error) {
	kindByte, err := readBytes1(r)
	if err != nil {
		return nil, err
	}
	switch ValueKind(kindByte) {
	case ValueKindNull:
		return DartValue{Kind: ValueKindNull}, nil
	case ValueKindBool:
		v, err := readBool(r)
		return DartValue{Kind: ValueKindBool, Bool: v}, err
	case ValueKindInt:
		v, err := readInt64(r)
		return DartValue{Kind: ValueKindInt, Int: v}, err
	case ValueKindDouble:
		v, err := readUint64(r)
		return DartValue{Kind: ValueKindDouble, Double: asFloat(v)}, err
	case ValueKindString:
		v, err := readString(r)
		return DartValue{Kind: ValueKindString, String: v}, err
	default:
		return nil, fmt.Errorf("vmdbg: unknown DartValue kind %d", kindByte)
	}
}

func readBytes1(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}
