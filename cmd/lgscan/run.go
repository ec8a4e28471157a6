package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lightgrep/lgvm/vm"
)

type runOptions struct {
	programPath string
	inputPath   string
	chunkSize   int
	traceBegin  uint64
	traceEnd    uint64
}

func newRunCmd(cfg *config) *cobra.Command {
	opt := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan a file against a marshaled program",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cfg, opt)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opt.programPath, "program", "p", "", "path to a marshaled Program (required)")
	flags.StringVarP(&opt.inputPath, "input", "i", "", "path to the input file to scan (required)")
	flags.IntVar(&opt.chunkSize, "chunk-size", 1<<16, "bytes read per Search call")
	flags.Uint64Var(&opt.traceBegin, "trace-begin", vm.UNALLOCATED, "start of the debug trace window (absolute offset)")
	flags.Uint64Var(&opt.traceEnd, "trace-end", vm.UNALLOCATED, "end of the debug trace window (absolute offset)")
	cmd.MarkFlagRequired("program")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runScan(cfg *config, opt *runOptions) error {
	logger, err := cfg.logger()
	if err != nil {
		return errors.Wrap(err, "lgscan: init logger")
	}
	defer logger.Sync()

	runID := uuid.New().String()
	log := logger.With(zap.String("run", runID))

	progData, err := os.ReadFile(opt.programPath)
	if err != nil {
		return errors.Wrapf(err, "lgscan: read program %q", opt.programPath)
	}
	prog, err := vm.Unmarshal(progData)
	if err != nil {
		return errors.Wrap(err, "lgscan: unmarshal program")
	}
	if err := prog.Validate(); err != nil {
		return errors.Wrap(err, "lgscan: invalid program")
	}
	log.Info("loaded program", zap.Int("instructions", len(prog.Body)))

	in, err := os.Open(opt.inputPath)
	if err != nil {
		return errors.Wrapf(err, "lgscan: open input %q", opt.inputPath)
	}
	defer in.Close()

	m := vm.NewVM(prog)
	if opt.traceBegin != vm.UNALLOCATED || opt.traceEnd != vm.UNALLOCATED {
		m.SetTraceWindow(opt.traceBegin, opt.traceEnd, func(offset uint64, threads []vm.Thread) {
			log.Debug("frame", zap.Uint64("offset", offset), zap.Int("active", len(threads)))
		})
	}

	cb := vm.HitCallbackFunc(func(hit vm.SearchHit) {
		fmt.Printf("%d\t%d\t%d\n", hit.Offset, hit.Length, hit.Label)
	})

	buf := make([]byte, opt.chunkSize)
	var offset uint64
	hitCount := 0
	countingCb := vm.HitCallbackFunc(func(hit vm.SearchHit) {
		hitCount++
		cb.Collect(hit)
	})
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, searchErr := m.Search(buf[:n], offset, countingCb); searchErr != nil {
				return errors.Wrap(searchErr, "lgscan: search")
			}
			offset += uint64(n)
		}
		if readErr != nil {
			if readErr != io.EOF {
				return errors.Wrapf(readErr, "lgscan: read %q", opt.inputPath)
			}
			break
		}
	}
	log.Info("scan complete", zap.Uint64("bytesScanned", offset), zap.Int("hits", hitCount))
	return nil
}
