// Package ismperrors is the failure taxonomy every handler raises. Each
// kind is a registered, codespaced error (cosmossdk.io/errors) so callers
// can test kind membership with errors.Is regardless of which structured
// fields a particular occurrence carries.
package ismperrors

import (
	"fmt"
	"time"

	cosmoserrors "cosmossdk.io/errors"

	"github.com/polytope-labs/go-ismp/types"
)

const codespace = "ismp"

// Registered error kinds. Every failure a handler raises on its own account
// wraps exactly one of these (a cancelled context's error is returned as
// is); structured occurrences below carry the precondition's inputs
// alongside it.
var (
	ErrUnknownConsensusClient               = cosmoserrors.Register(codespace, 2, "unknown consensus client")
	ErrConsensusStateIdNotRecognized         = cosmoserrors.Register(codespace, 3, "consensus state id not recognized")
	ErrConsensusStateNotFound                = cosmoserrors.Register(codespace, 4, "consensus state not found")
	ErrStateCommitmentNotFound               = cosmoserrors.Register(codespace, 5, "state commitment not found")
	ErrImplementationSpecific                = cosmoserrors.Register(codespace, 6, "implementation specific error")
	ErrChallengePeriodNotElapsed             = cosmoserrors.Register(codespace, 7, "challenge period has not elapsed")
	ErrUnbondingPeriodElapsed                = cosmoserrors.Register(codespace, 8, "unbonding period has elapsed")
	ErrFrozenConsensusClient                 = cosmoserrors.Register(codespace, 9, "consensus client is frozen")
	ErrFrozenStateMachine                    = cosmoserrors.Register(codespace, 10, "state machine is frozen at this height")
	ErrMembershipProofVerificationFailed     = cosmoserrors.Register(codespace, 11, "membership proof verification failed")
	ErrNonMembershipProofVerificationFailed  = cosmoserrors.Register(codespace, 12, "non-membership proof verification failed")
	ErrConsensusProofVerificationFailed      = cosmoserrors.Register(codespace, 13, "consensus proof verification failed")
	ErrRequestCommitmentNotFound             = cosmoserrors.Register(codespace, 14, "request commitment not found")
	ErrRequestTimeoutVerificationFailed      = cosmoserrors.Register(codespace, 15, "request timeout verification failed")
	ErrCannotHandleMessage                   = cosmoserrors.Register(codespace, 16, "cannot route an admin message through the message handler")
)

// ChallengePeriodNotElapsed is raised by the consensus update handler when
// now-update_time <= delay (the boundary itself fails; strictly greater
// elapsed time is required).
type ChallengePeriodNotElapsed struct {
	ClientId   types.ConsensusClientId
	Now        time.Duration
	UpdateTime time.Duration
}

func (e *ChallengePeriodNotElapsed) Error() string {
	return fmt.Sprintf("%s: client %s now=%s update_time=%s", ErrChallengePeriodNotElapsed.Error(), e.ClientId, e.Now, e.UpdateTime)
}

func (e *ChallengePeriodNotElapsed) Unwrap() error { return ErrChallengePeriodNotElapsed }

// UnbondingPeriodElapsed is raised when a consensus state has aged past its
// client's unbonding period.
type UnbondingPeriodElapsed struct {
	ConsensusId types.ConsensusStateId
}

func (e *UnbondingPeriodElapsed) Error() string {
	return fmt.Sprintf("%s: consensus state %s", ErrUnbondingPeriodElapsed.Error(), e.ConsensusId)
}

func (e *UnbondingPeriodElapsed) Unwrap() error { return ErrUnbondingPeriodElapsed }

// FrozenConsensusClient is raised whenever a frozen consensus state id is
// used by any message pipeline.
type FrozenConsensusClient struct {
	Id types.ConsensusStateId
}

func (e *FrozenConsensusClient) Error() string {
	return fmt.Sprintf("%s: %s", ErrFrozenConsensusClient.Error(), e.Id)
}

func (e *FrozenConsensusClient) Unwrap() error { return ErrFrozenConsensusClient }

// FrozenStateMachine is raised when a proof references a height at or above
// a frozen height for that state machine id.
type FrozenStateMachine struct {
	Height types.StateMachineHeight
}

func (e *FrozenStateMachine) Error() string {
	return fmt.Sprintf("%s: %s", ErrFrozenStateMachine.Error(), e.Height)
}

func (e *FrozenStateMachine) Unwrap() error { return ErrFrozenStateMachine }

// RequestCommitmentNotFound is raised by the response and timeout handlers
// when no matching outbound request commitment exists on the host.
type RequestCommitmentNotFound struct {
	Nonce  uint64
	Source types.StateMachine
	Dest   types.StateMachine
}

func (e *RequestCommitmentNotFound) Error() string {
	return fmt.Sprintf("%s: nonce=%d source=%s dest=%s", ErrRequestCommitmentNotFound.Error(), e.Nonce, e.Source, e.Dest)
}

func (e *RequestCommitmentNotFound) Unwrap() error { return ErrRequestCommitmentNotFound }

// RequestTimeoutVerificationFailed is raised when the destination chain's
// committed timestamp has not yet surpassed the request's timeout.
type RequestTimeoutVerificationFailed struct {
	Nonce  uint64
	Source types.StateMachine
	Dest   types.StateMachine
}

func (e *RequestTimeoutVerificationFailed) Error() string {
	return fmt.Sprintf("%s: nonce=%d source=%s dest=%s", ErrRequestTimeoutVerificationFailed.Error(), e.Nonce, e.Source, e.Dest)
}

func (e *RequestTimeoutVerificationFailed) Unwrap() error {
	return ErrRequestTimeoutVerificationFailed
}

// ConsensusStateIdNotRecognized is raised when a message references a
// consensus state id the host has no client mapping for.
type ConsensusStateIdNotRecognized struct {
	ConsensusStateId types.ConsensusStateId
}

func (e *ConsensusStateIdNotRecognized) Error() string {
	return fmt.Sprintf("%s: %s", ErrConsensusStateIdNotRecognized.Error(), e.ConsensusStateId)
}

func (e *ConsensusStateIdNotRecognized) Unwrap() error { return ErrConsensusStateIdNotRecognized }

// ImplementationSpecific wraps a free-form host/router failure message that
// does not fit a more specific kind.
type ImplementationSpecific struct {
	Message string
}

func (e *ImplementationSpecific) Error() string {
	return fmt.Sprintf("%s: %s", ErrImplementationSpecific.Error(), e.Message)
}

func (e *ImplementationSpecific) Unwrap() error { return ErrImplementationSpecific }
