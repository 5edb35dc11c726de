package command

// Arity is the declared expected-reply count of an outbound command:
// either a fixed non-negative integer, or the "manual" marker for
// commands whose replies a high-level operation consumes directly.
// Design note: manual commands must never reach the generic
// Request/Reply Engine. Rather than a nullable int, that rule is
// enforced at the type level via GenericSafe below.
type Arity struct {
	n      int
	manual bool
}

// Fixed builds a fixed reply-count Arity.
func Fixed(n int) Arity { return Arity{n: n} }

// Manual builds the manual/streaming marker Arity.
func Manual() Arity { return Arity{manual: true} }

// IsManual reports whether this Arity is the manual marker.
func (a Arity) IsManual() bool { return a.manual }

// Count returns the fixed reply count and true, or (0, false) if this
// Arity is manual.
func (a Arity) Count() (int, bool) {
	if a.manual {
		return 0, false
	}
	return a.n, true
}

// GenericSafe wraps an Outbound command that is known, at construction
// time, not to be manual. It is the only type engine.RunCommands
// accepts, so a manual command cannot type-check its way into the
// generic engine.
type GenericSafe struct {
	cmd Outbound
	n   int
}

// Command returns the wrapped outbound command.
func (g GenericSafe) Command() Outbound { return g.cmd }

// ExpectedReplies returns the fixed reply count recorded at wrap time.
func (g GenericSafe) ExpectedReplies() int { return g.n }

// AsGenericSafe wraps cmd for use with the generic engine, rejecting
// manual commands.
func AsGenericSafe(cmd Outbound) (GenericSafe, bool) {
	n, ok := cmd.ExpectedReplies().Count()
	if !ok {
		return GenericSafe{}, false
	}
	return GenericSafe{cmd: cmd, n: n}, true
}

// MustGenericSafe panics if cmd is manual. Used at call sites that
// build a literal, known-fixed-arity command list inline.
func MustGenericSafe(cmd Outbound) GenericSafe {
	g, ok := AsGenericSafe(cmd)
	if !ok {
		panic("vmdbg: command " + cmd.Code().String() + " has manual arity and cannot enter the generic engine")
	}
	return g
}
