package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// diagnostics writes the one-line-per-failure messages spec.md §7 mandates,
// plus info-level lines through infof. Every line carries a correlation id,
// generated once when the diagnostics writer is created (so once per VM,
// not once per Run), so merged output from several independently-running
// VMs can be told apart
// (Design Notes "Global state": registry and FFI cache are per-VM, not
// process-wide, so nothing else disambiguates them).
type diagnostics struct {
	w      io.Writer
	color  bool
	runID  string
}

func newDiagnostics(w io.Writer) *diagnostics {
	if w == nil {
		w = os.Stderr
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &diagnostics{w: w, color: color, runID: uuid.NewString()}
}

func (d *diagnostics) tag(level string) string {
	if !d.color {
		return fmt.Sprintf("[%s] %s:", d.runID[:8], level)
	}
	// Dim ANSI escape around the severity tag only; kept local to this file
	// rather than pulling in fatih/color, which cmd/droplet already uses
	// for disassembly coloring — this is a single two-code escape, not a
	// styled-output surface worth a dependency of its own.
	const dim = "\x1b[2m"
	const reset = "\x1b[0m"
	return fmt.Sprintf("%s[%s] %s:%s", dim, d.runID[:8], level, reset)
}

// errorf writes a run-time-anomaly diagnostic (spec.md §7.2): one line,
// execution continues.
func (d *diagnostics) errorf(format string, args ...any) {
	fmt.Fprintf(d.w, "%s %s\n", d.tag("error"), fmt.Sprintf(format, args...))
}

// infof writes a non-fatal informational line. Nothing in the repository
// calls it: the load summary is returned by loader.Load and printed by
// cmd/droplet to its standard output.
func (d *diagnostics) infof(format string, args ...any) {
	fmt.Fprintf(d.w, "%s %s\n", d.tag("info"), fmt.Sprintf(format, args...))
}
