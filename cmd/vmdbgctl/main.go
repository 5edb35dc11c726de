// Command vmdbgctl is an interactive driver for the wire debug
// protocol: it dials a VM, runs the handshake/initialize sequence, and
// drops into a REPL that exercises session.Controller's full surface.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
