package handlers

import (
	"context"
	"fmt"

	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// TimeoutResult aggregates the per-item outcomes of a TimeoutMessage.
type TimeoutResult struct {
	Outcomes []DispatchOutcome
}

// HandleTimeouts verifies, for each request, that it has an outstanding
// outbound commitment, that the destination's committed timestamp has
// surpassed the request's timeout, and that the request is in fact absent
// from the destination's state (it was never delivered); on success it
// notifies the origin module and deletes the outbound commitment (spec
// §4.5, TimeoutMessage).
func (m *Module) HandleTimeouts(ctx context.Context, msg types.TimeoutMessage) (*TimeoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := m.validateStateMachine(msg.TimeoutProof.Height)
	if err != nil {
		return nil, err
	}

	root, err := m.Host.StateMachineCommitment(msg.TimeoutProof.Height)
	if err != nil {
		return nil, err
	}

	result := &TimeoutResult{Outcomes: make([]DispatchOutcome, len(msg.Requests))}
	for i, req := range msg.Requests {
		outcome := DispatchOutcome{Source: req.SourceChain(), Dest: req.DestChain(), Nonce: req.Nonce()}

		reqCommitment := commitment.HashRequest(req)
		if _, err := m.Host.RequestCommitment(reqCommitment); err != nil {
			outcome.Err = &ismperrors.RequestCommitmentNotFound{Nonce: req.Nonce(), Source: req.SourceChain(), Dest: req.DestChain()}
			result.Outcomes[i] = outcome
			continue
		}

		if !req.TimedOut(root.Timestamp) {
			outcome.Err = &ismperrors.RequestTimeoutVerificationFailed{Nonce: req.Nonce(), Source: req.SourceChain(), Dest: req.DestChain()}
			result.Outcomes[i] = outcome
			continue
		}

		key := client.StateTrieKey(reqCommitment)
		if err := client.VerifyNonMembership(root, msg.TimeoutProof.Height.Height, msg.TimeoutProof.Proof, key); err != nil {
			outcome.Err = fmt.Errorf("%w: %v", ismperrors.ErrNonMembershipProofVerificationFailed, err)
			result.Outcomes[i] = outcome
			continue
		}

		if err := m.Router.DispatchTimeout(req); err != nil {
			outcome.Err = err
			result.Outcomes[i] = outcome
			continue
		}
		if err := m.Host.DeleteRequestCommitment(reqCommitment); err != nil {
			outcome.Err = err
		}

		result.Outcomes[i] = outcome
		m.Log.Info().Uint64("nonce", outcome.Nonce).Bool("ok", outcome.Err == nil).Msg("timeout processed")
	}

	return result, nil
}
