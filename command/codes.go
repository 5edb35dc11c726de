// Package command models the outbound and inbound variants of the wire
// protocol: each outbound command knows its code, how to serialize its
// payload and how many replies it expects; each inbound command is a
// decoded, typed reply or asynchronous event.
package command

// Code is the one-byte wire command code.
type Code byte

const (
	CodeHandShake Code = iota + 1
	CodeDebugging
	CodeLiveEditing
	CodeProcessSpawnForMain
	CodeProcessRun
	CodeProcessContinue
	CodePushFromMap
	CodeProcessSetBreakpoint
	CodeProcessDeleteBreakpoint
	CodeProcessDeleteOneShotBreakpoint
	CodeProcessStepTo
	CodeProcessStep
	CodeProcessStepOver
	CodeProcessStepOut
	CodeProcessBacktraceRequest
	CodeProcessNumberOfStacksRequest
	CodeProcessGetProcessIds
	CodeProcessUncaughtExceptionRequest
	CodeNewMap
	CodeDeleteMap
	CodeProcessAddFibersToMap
	CodeProcessFiberBacktraceRequest
	CodeProcessDebugInterrupt
	CodeSessionEnd
	CodeCreateSnapshot

	// Inbound-only codes.
	CodeConnectionError
	CodeHandShakeResult
	CodeDebuggingReply
	CodeProcessBreakpoint
	CodeProcessBacktrace
	CodeProcessNumberOfStacks
	CodeProcessGetProcessIdsResult
	CodeUncaughtException
	CodeProcessCompileTimeError
	CodeProcessTerminated
	CodeStdoutData
	CodeStderrData
	CodeDartValue
	CodeInstanceStructure
	CodeArrayStructure
	CodeProgramInfo

	// CodeProgramInfoRequest is appended after the inbound-only block
	// rather than grouped with the other outbound codes so that no
	// existing code's numeric value shifts.
	CodeProgramInfoRequest
)

var codeNames = map[Code]string{
	CodeHandShake:                       "HandShake",
	CodeDebugging:                       "Debugging",
	CodeLiveEditing:                     "LiveEditing",
	CodeProcessSpawnForMain:             "ProcessSpawnForMain",
	CodeProcessRun:                      "ProcessRun",
	CodeProcessContinue:                 "ProcessContinue",
	CodePushFromMap:                     "PushFromMap",
	CodeProcessSetBreakpoint:            "ProcessSetBreakpoint",
	CodeProcessDeleteBreakpoint:         "ProcessDeleteBreakpoint",
	CodeProcessDeleteOneShotBreakpoint:  "ProcessDeleteOneShotBreakpoint",
	CodeProcessStepTo:                   "ProcessStepTo",
	CodeProcessStep:                     "ProcessStep",
	CodeProcessStepOver:                 "ProcessStepOver",
	CodeProcessStepOut:                  "ProcessStepOut",
	CodeProcessBacktraceRequest:         "ProcessBacktraceRequest",
	CodeProcessNumberOfStacksRequest:    "ProcessNumberOfStacksRequest",
	CodeProcessGetProcessIds:            "ProcessGetProcessIds",
	CodeProcessUncaughtExceptionRequest: "ProcessUncaughtExceptionRequest",
	CodeNewMap:                          "NewMap",
	CodeDeleteMap:                       "DeleteMap",
	CodeProcessAddFibersToMap:           "ProcessAddFibersToMap",
	CodeProcessFiberBacktraceRequest:    "ProcessFiberBacktraceRequest",
	CodeProcessDebugInterrupt:           "ProcessDebugInterrupt",
	CodeSessionEnd:                      "SessionEnd",
	CodeCreateSnapshot:                  "CreateSnapshot",
	CodeConnectionError:                 "ConnectionError",
	CodeHandShakeResult:                 "HandShakeResult",
	CodeDebuggingReply:                  "DebuggingReply",
	CodeProcessBreakpoint:               "ProcessBreakpoint",
	CodeProcessBacktrace:                "ProcessBacktrace",
	CodeProcessNumberOfStacks:           "ProcessNumberOfStacks",
	CodeProcessGetProcessIdsResult:      "ProcessGetProcessIdsResult",
	CodeUncaughtException:               "UncaughtException",
	CodeProcessCompileTimeError:         "ProcessCompileTimeError",
	CodeProcessTerminated:               "ProcessTerminated",
	CodeStdoutData:                      "StdoutData",
	CodeStderrData:                      "StderrData",
	CodeDartValue:                       "DartValue",
	CodeInstanceStructure:               "InstanceStructure",
	CodeArrayStructure:                  "ArrayStructure",
	CodeProgramInfo:                     "ProgramInfo",
	CodeProgramInfoRequest:              "ProgramInfoRequest",
}

// String returns the command's symbolic name, used in error messages
// and log lines.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// IsStdio reports whether code identifies an out-of-band stdio frame
// that the Event Demultiplexer must swallow before it ever reaches the
// Request/Reply Engine.
func (c Code) IsStdio() bool {
	return c == CodeStdoutData || c == CodeStderrData
}

// IsStop reports whether an inbound command with this code is a
// process-stop per spec §4.8.
func (c Code) IsStop() bool {
	switch c {
	case CodeProcessBreakpoint, CodeUncaughtException, CodeProcessCompileTimeError, CodeProcessTerminated, CodeConnectionError:
		return true
	default:
		return false
	}
}
