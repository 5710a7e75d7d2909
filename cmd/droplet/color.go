package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// colorEnabled resolves the --color flag (auto|on|off) the way the teacher's
// root command does, against whether stdout is actually a terminal.
func colorEnabled(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

func colorizer(cmd *cobra.Command) (ok, warn, errc *color.Color) {
	enabled := colorEnabled(cmd)
	ok = color.New(color.FgGreen)
	warn = color.New(color.FgYellow)
	errc = color.New(color.FgRed, color.Bold)
	if !enabled {
		ok.DisableColor()
		warn.DisableColor()
		errc.DisableColor()
	}
	return ok, warn, errc
}
