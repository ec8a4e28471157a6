package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lightgrep/lgvm/vm"
)

func newDisasmCmd(cfg *config) *cobra.Command {
	var programPath string
	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Print a marshaled program's disassembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(programPath)
			if err != nil {
				return errors.Wrapf(err, "lgscan: read program %q", programPath)
			}
			prog, err := vm.Unmarshal(data)
			if err != nil {
				return errors.Wrap(err, "lgscan: unmarshal program")
			}
			if err := prog.Validate(); err != nil {
				return errors.Wrap(err, "lgscan: invalid program")
			}
			_, err = prog.Disassemble(os.Stdout, nil)
			return err
		},
	}
	cmd.Flags().StringVarP(&programPath, "program", "p", "", "path to a marshaled Program (required)")
	cmd.MarkFlagRequired("program")
	return cmd
}
