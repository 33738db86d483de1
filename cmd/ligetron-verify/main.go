// Command ligetron-verify checks a proof.data blob against a bytecode
// module: same positional form as the prover, plus an implicit proof.data
// read from the current directory.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luxfi/ligetron-iop/bytecode"
	"github.com/luxfi/ligetron-iop/instrument"
	"github.com/luxfi/ligetron-iop/iop"
	"github.com/luxfi/ligetron-iop/proof"
)

var (
	verbose  int
	security int
	inPath   string
)

func main() {
	root := &cobra.Command{
		Use:   "ligetron-verify <bytecode-file> <l> <input-A> <input-B>",
		Short: "verify a proof.data blob against a bytecode module",
		Args:  cobra.ExactArgs(4),
		RunE:  run,
	}
	root.Flags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")
	root.Flags().IntVar(&security, "security", 80, "target soundness in bits, must match the prover's")
	root.Flags().StringVar(&inPath, "proof", "proof.data", "path to read the proof blob from")

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

	blob, err := os.ReadFile(inPath)
	if err != nil {
		ctx.Log.Error().Err(err).Msg("failed to read proof")
		os.Exit(1)
	}
	p, err := proof.Unmarshal(blob)
	if err != nil {
		ctx.Log.Error().Err(err).Msg("SerializationError: malformed proof blob")
		os.Exit(1)
	}

	sec := iop.ParamsForSecurity(security)
	err = iop.Verify(ctx, mod, l, []byte(inputA), []byte(inputB), p, sec)
	if err != nil {
		ctx.Log.Error().Err(err).Msg(disposition(err))
		os.Exit(1)
	}

	ctx.Log.Info().Msg("proof accepted")
	return nil
}

// disposition maps a rejected proof's error to the exact
// "ProofRejected:<Check>" token expected on stderr, distinct from the
// wrapped sentinel's own lowercase message string.
func disposition(err error) string {
	switch {
	case errors.Is(err, iop.ErrMerkleMismatch):
		return "ProofRejected:MerkleMismatch"
	case errors.Is(err, iop.ErrCodeCheck):
		return "ProofRejected:CodeCheck"
	case errors.Is(err, iop.ErrLinearCheck):
		return "ProofRejected:LinearCheck"
	case errors.Is(err, iop.ErrQuadCheck):
		return "ProofRejected:QuadCheck"
	default:
		return "verification failed"
	}
}
