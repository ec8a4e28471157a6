package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lightgrep/lgvm/vm"
)

func newReplCmd(cfg *config) *cobra.Command {
	var programPath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively scan ad-hoc input against a loaded program",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(programPath)
		},
	}
	cmd.Flags().StringVarP(&programPath, "program", "p", "", "path to a marshaled Program (required)")
	cmd.MarkFlagRequired("program")
	return cmd
}

// runRepl loads one program and then repeatedly scans each typed line
// against a fresh VM, printing SearchHits as they're found. "disasm"
// prints the loaded program's listing; "exit" or EOF ends the session.
func runRepl(programPath string) error {
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

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "lgscan> ",
		HistoryFile: "/tmp/lgscan_repl_history.txt",
	})
	if err != nil {
		return errors.Wrap(err, "lgscan: init readline")
	}
	defer rl.Close()

	fmt.Println("Type input to scan against the loaded program, 'disasm' to list it, 'exit' to quit.")
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit":
			return nil
		case "disasm":
			if _, err := prog.Disassemble(os.Stdout, nil); err != nil {
				fmt.Println("disassemble error:", err)
			}
			continue
		}

		m := vm.NewVM(prog)
		var hits vm.HitSlice
		if _, err := m.Search([]byte(line), 0, &hits); err != nil {
			fmt.Println("search error:", err)
			continue
		}
		if len(hits.Hits) == 0 {
			fmt.Println("(no matches)")
			continue
		}
		for _, hit := range hits.Hits {
			fmt.Printf("offset=%d length=%d label=%d\n", hit.Offset, hit.Length, hit.Label)
		}
	}
	return nil
}
