package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/droplet-lang/lang/internal/config"
	"github.com/droplet-lang/lang/internal/natives"
	"github.com/droplet-lang/lang/internal/trace"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/loader"
	"github.com/droplet-lang/lang/pkg/value"
	"github.com/droplet-lang/lang/pkg/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <module.dbc>",
	Short: "Load and execute a .dbc module",
	Args:  cobra.ExactArgs(1),
	RunE:  runModule,
}

func init() {
	runCmd.Flags().String("entry", "main", "entry function to run")
	runCmd.Flags().Bool("trace", false, "record an instruction trace and dump it on exit")
}

func runModule(cmd *cobra.Command, args []string) error {
	path := args[0]
	entry, _ := cmd.Flags().GetString("entry")
	wantTrace, _ := cmd.Flags().GetBool("trace")

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return fmt.Errorf("loading droplet.toml: %w", err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	h := heap.NewWithThreshold(cfg.GC.ThresholdBytes, cfg.GC.GrowthFactor)
	mod, summary, err := loader.Load(buf, h)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	ok, _, _ := colorizer(cmd)
	ok.Fprintln(cmd.OutOrStdout(), summary)

	opts := []vm.Option{vm.WithFFISearchPaths(cfg.FFI.LibraryPaths)}
	var tb *trace.Buffer
	if wantTrace || cfg.Trace {
		tb = trace.NewBuffer(4096)
		opts = append(opts, vm.WithTrace(tb))
	}

	v := vm.New(mod, h, opts...)
	natives.RegisterFiltered(v, cmd.OutOrStdout(), cfg.NativeEnabled)

	result := v.Run(entry)

	if tb != nil {
		data, err := tb.Dump()
		if err == nil {
			_ = os.WriteFile(path+".trace", data, 0644)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), describeResult(result))
	return nil
}

func describeResult(v value.Value) string {
	switch v.Kind() {
	case value.KindNil, value.KindBool, value.KindInt, value.KindDouble:
		return v.ImmediateDisplay()
	default:
		return "<object>"
	}
}
