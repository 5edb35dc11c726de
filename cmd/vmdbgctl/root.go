package main

import "github.com/spf13/cobra"

// rootCmd is the base command when vmdbgctl is called without a
// subcommand. Grounded on dittofs/cmd/dittofs/commands.rootCmd's
// SilenceUsage/SilenceErrors + single Execute() entry point shape.
var rootCmd = &cobra.Command{
	Use:   "vmdbgctl",
	Short: "Interactive driver for the VM debug wire protocol",
	Long: `vmdbgctl dials a VM's debug protocol endpoint, negotiates the
handshake, and drops into a REPL that issues the same high-level
operations a GUI or CI harness would: spawning the process, setting
breakpoints, stepping, and reading back traces and remote values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
