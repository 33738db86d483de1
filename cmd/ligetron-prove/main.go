// Command ligetron-prove runs the three-stage commit/argument/disclosure
// prover over a bytecode module and writes proof.data on success, taking
// positional arguments (bytecode-file, l, input-A, input-B).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/instrument"
	"github.com/luxfi/ligetron-iop/iop"
	"github.com/luxfi/ligetron-iop/proof"
	"github.com/luxfi/ligetron-iop/reference"
	"github.com/luxfi/ligetron-iop/vm"
)

var (
	verbose  int
	security int
	outPath  string
)

func main() {
	root := &cobra.Command{
		Use:   "ligetron-prove <bytecode-file> <l> <input-A> <input-B>",
		Short: "prove a statement over a bytecode module",
		Args:  cobra.ExactArgs(4),
		RunE:  run,
	}
	root.Flags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")
	root.Flags().IntVar(&security, "security", 80, "target soundness in bits")
	root.Flags().StringVar(&outPath, "out", "proof.data", "path to write the proof blob")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if verbose > 0 {
		level = zerolog.DebugLevel
	}
	if verbose > 1 {
		level = zerolog.TraceLevel
	}
	ctx := instrument.New(level)

	modPath, lStr, inputA, inputB := args[0], args[1], args[2], args[3]
	l, err := strconv.Atoi(lStr)
	if err != nil || l <= 0 {
		ctx.Log.Error().Str("l", lStr).Msg("l must be a positive integer")
		os.Exit(1)
	}

	mod, err := bytecode.Load(modPath)
	if err != nil {
		ctx.Log.Error().Err(err).Msg("failed to load module")
		os.Exit(1)
	}

	// Fail fast on a false or trapping statement before spending any
	// stage-1 time on a program that will trap or assert false.
	refResult, err := reference.Run(mod, []byte(inputA), []byte(inputB))
	if err != nil {
		if _, ok := err.(*vm.TrapError); ok {
			ctx.Log.Error().Err(err).Msg("program trapped")
			os.Exit(1)
		}
		ctx.Log.Error().Err(err).Msg("reference execution failed")
		os.Exit(1)
	}
	if refResult != 1 {
		ctx.Log.Error().Int32("result", refResult).Msg("statement did not evaluate to 1")
		os.Exit(2)
	}

	sec := iop.ParamsForSecurity(security)
	p, err := iop.Prove(ctx, mod, l, []byte(inputA), []byte(inputB), sec)
	if err != nil {
		if _, ok := err.(*vm.TrapError); ok {
			ctx.Log.Error().Err(err).Msg("program trapped during proving")
			os.Exit(1)
		}
		if err == iop.ErrStatementFalse {
			ctx.Log.Error().Msg("statement did not evaluate to 1")
			os.Exit(2)
		}
		ctx.Log.Error().Err(err).Msg("prove failed")
		os.Exit(1)
	}

	blob, err := proof.Marshal(p)
	if err != nil {
		ctx.Log.Error().Err(err).Msg("failed to serialize proof")
		os.Exit(1)
	}

	// Write atomically: a temp file renamed into place, so a crash mid-write
	// never leaves a truncated proof.data behind.
	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		ctx.Log.Error().Err(err).Msg("failed to write proof")
		os.Exit(1)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		ctx.Log.Error().Err(err).Msg("failed to finalize proof")
		os.Exit(1)
	}

	ctx.Log.Info().Str("path", outPath).Msg("proof written")
	return nil
}
