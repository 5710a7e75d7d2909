// Droplet is the reference CLI for the bytecode execution core: it loads a
// .dbc module, registers the baseline native functions, and runs it
// (spec.md §6.3's Host API: register_native, load_module, run). Command
// structure grounded on the teacher's cmd/surge's cobra root command and
// subcommand-per-file layout.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "droplet",
	Short: "Droplet bytecode interpreter",
	Long:  `Droplet loads and runs .dbc bytecode modules against the stack-based VM.`,
}

func main() {
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(disasmCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
