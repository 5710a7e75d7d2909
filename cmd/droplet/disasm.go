package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/loader"
	"github.com/droplet-lang/lang/pkg/module"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <module.dbc>",
	Short: "Disassemble a .dbc module's functions",
	Args:  cobra.ExactArgs(1),
	RunE:  disasmModule,
}

func disasmModule(cmd *cobra.Command, args []string) error {
	path := args[0]
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	h := heap.New()
	mod, _, err := loader.Load(buf, h)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	ok, _, _ := colorizer(cmd)
	constants := constantNamer(mod, h)
	for _, fn := range mod.Functions {
		ok.Fprintf(cmd.OutOrStdout(), "func %s(argc=%d, locals=%d)\n", fn.Name, fn.ArgCount, fn.LocalCount)
		fmt.Fprint(cmd.OutOrStdout(), bytecode.Disassemble(fn.Code, constants))
	}
	return nil
}

func constantNamer(mod *module.Module, h *heap.Heap) func(uint32) string {
	return func(idx uint32) string {
		if int(idx) >= len(mod.Constants) {
			return ""
		}
		c := mod.Constants[idx]
		if !c.IsObject() {
			return c.ImmediateDisplay()
		}
		obj, ok := h.Get(c.Ref())
		if !ok {
			return ""
		}
		return obj.Display()
	}
}
