// Package iop implements the IOP orchestration component (I): the
// three-stage commit/argument/disclosure prover and the verifier that
// checks the resulting proof blob. Grounded on
// original_source/include/zkp/prover_context.hpp and prover_execution.hpp
// for the stage sequencing, argument.hpp for the update rules package
// argument implements, and merkle_tree.hpp for the commit/decommit/recommit
// flow package merkle implements.
package iop

import "errors"

// ErrMerkleMismatch, ErrCodeCheck, ErrLinearCheck and ErrQuadCheck are the
// four §4.I verifier dispositions, wrapped by ProofRejectedError.
var (
	ErrMerkleMismatch = errors.New("iop: merkle root mismatch")
	ErrCodeCheck      = errors.New("iop: code argument check failed")
	ErrLinearCheck    = errors.New("iop: linear argument check failed")
	ErrQuadCheck      = errors.New("iop: quadratic argument check failed")
)

// ErrStatementFalse is returned by Prove when the program's top-of-stack
// result is not 1 -- the reference/stage1 "assert_one" check failing before
// any proof is written, per §7: "no partial proofs are emitted."
var ErrStatementFalse = errors.New("iop: statement did not evaluate to 1")

// ProofRejectedError wraps one of the four verifier disposition sentinels
// above with the check name, so cmd/ligetron-verify can report e.g.
// "ProofRejected:QuadCheck" per §6.
type ProofRejectedError struct {
	Err error
}

func (e *ProofRejectedError) Error() string { return "ProofRejected:" + e.Err.Error() }
func (e *ProofRejectedError) Unwrap() error { return e.Err }

func rejected(err error) error { return &ProofRejectedError{Err: err} }
