// Command lgscan loads compiled lgvm programs and drives them over input
// files: running a scan, printing a disassembly, or exploring a program
// interactively against ad-hoc input in a REPL.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
