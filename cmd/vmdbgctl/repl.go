package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/lookbusy1344/vmdbg/session"
)

// replCommand is one entry of the REPL's dispatch table, grounded on
// debugger.Debugger's commands.go cmdXxx handlers: a short name and an
// argument-taking function, looked up by exact match against the
// first whitespace-separated token of the input line.
type replCommand struct {
	name string
	help string
	run  func(ctx context.Context, ctrl *session.Controller, args []string) error
}

var replCommands []replCommand

func init() {
	replCommands = []replCommand{
		{"run", "run                       start the spawned process running", cmdRun},
		{"cont", "cont                      resume a paused process", cmdCont},
		{"step", "step                      step one source line, into calls", cmdStep},
		{"next", "next                      step one source line, over calls", cmdNext},
		{"out", "out                       run until the current function returns", cmdOut},
		{"break", "break <method> [index]    set a breakpoint by method name", cmdBreak},
		{"delete", "delete <id>               delete a breakpoint by id", cmdDelete},
		{"bt", "bt                        print the current back trace", cmdBT},
		{"interrupt", "interrupt                 pause a running process", cmdInterrupt},
		{"quit", "quit                      terminate the session and exit", cmdQuit},
		{"help", "help                      list available commands", cmdHelp},
	}
}

// runREPL reads command lines from the terminal until quit or EOF,
// dispatching each to the matching replCommand. Grounded on the
// readline-driven prefix-dispatch REPL pattern (read line, split on
// first whitespace run, look up by name, run), simplified from prefix
// matching to exact matching since the command set here is small
// enough not to need abbreviation.
func runREPL(ctx context.Context, ctrl *session.Controller) error {
	rl, err := readline.New("vmdbg> ")
	if err != nil {
		return fmt.Errorf("vmdbgctl: readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, ok := lookupCommand(fields[0])
		if !ok {
			fmt.Printf("unknown command %q (try \"help\")\n", fields[0])
			continue
		}

		if err := cmd.run(ctx, ctrl, fields[1:]); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		if cmd.name == "quit" {
			return nil
		}
	}
}

func lookupCommand(name string) (replCommand, bool) {
	for _, c := range replCommands {
		if c.name == name {
			return c, true
		}
	}
	return replCommand{}, false
}

func cmdHelp(_ context.Context, _ *session.Controller, _ []string) error {
	fmt.Println("available commands:")
	for _, c := range replCommands {
		fmt.Println("  " + c.help)
	}
	return nil
}

func cmdRun(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.StartRunning(ctx)
}

func cmdCont(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.Cont(ctx)
}

func cmdStep(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.Step(ctx)
}

func cmdNext(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.StepOver(ctx)
}

func cmdOut(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.StepOut(ctx)
}

func cmdInterrupt(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.Interrupt(ctx)
}

func cmdBreak(ctx context.Context, ctrl *session.Controller, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <method> [bytecodeIndex]")
	}
	index := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad bytecode index %q: %w", args[1], err)
		}
		index = n
	}
	bps, err := ctrl.SetBreakpoint(ctx, args[0], index)
	if err != nil {
		return err
	}
	if len(bps) == 0 {
		fmt.Printf("no function registered under %q\n", args[0])
	}
	return nil
}

func cmdDelete(ctx context.Context, ctrl *session.Controller, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad breakpoint id %q: %w", args[0], err)
	}
	return ctrl.DeleteBreakpoint(ctx, id)
}

func cmdBT(ctx context.Context, ctrl *session.Controller, _ []string) error {
	bt, err := ctrl.BackTrace(ctx, ctrl.CurrentProcessID())
	if err != nil {
		return err
	}
	for i, f := range bt.Frames {
		marker := " "
		if !f.Visible {
			marker = "*"
		}
		fmt.Printf("%s#%d function %d @ %d\n", marker, i, f.FunctionID, f.BytecodePointer)
	}
	return nil
}

func cmdQuit(ctx context.Context, ctrl *session.Controller, _ []string) error {
	return ctrl.Terminate(ctx)
}
