package handlers

import (
	"context"
	"fmt"

	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// DispatchOutcome is one item's result within a batched
// request/response/timeout message: either a successful dispatch record or
// the error that item failed with.
type DispatchOutcome struct {
	Source types.StateMachine
	Dest   types.StateMachine
	Nonce  uint64
	Err    error
}

// RequestResult aggregates the per-item outcomes of a RequestMessage.
// Per spec §4.5/§9, a dispatch failure for one request does not roll back
// prior successes within the batch — every item is reported, in input
// order.
type RequestResult struct {
	Outcomes []DispatchOutcome
}

// HandleRequests verifies a batch of inbound requests against one
// membership proof and dispatches each to its destination module in
// input order (spec §4.5, RequestMessage).
func (m *Module) HandleRequests(ctx context.Context, msg types.RequestMessage) (*RequestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := m.validateStateMachine(msg.Proof.Height)
	if err != nil {
		return nil, err
	}

	root, err := m.Host.StateMachineCommitment(msg.Proof.Height)
	if err != nil {
		return nil, err
	}

	items := make([]consensus.MembershipItem, len(msg.Requests))
	for i, req := range msg.Requests {
		c := commitment.HashRequest(req)
		items[i] = consensus.MembershipItem{Key: client.StateTrieKey(c), Value: c[:]}
	}
	if err := client.VerifyMembership(root, msg.Proof.Height.Height, msg.Proof.Proof, items); err != nil {
		return nil, fmt.Errorf("%w: %v", ismperrors.ErrMembershipProofVerificationFailed, err)
	}

	result := &RequestResult{Outcomes: make([]DispatchOutcome, len(msg.Requests))}
	for i, req := range msg.Requests {
		outcome := DispatchOutcome{Source: req.SourceChain(), Dest: req.DestChain(), Nonce: req.Nonce()}

		if req.IsGet() {
			values, err := m.Router.GetRequestValues(*req.Get)
			if err != nil {
				outcome.Err = err
			} else {
				resp := types.GetResponse(req, values)
				if err := m.Router.WriteResponse(resp); err != nil {
					outcome.Err = err
				}
			}
		} else if _, err := m.Router.Dispatch(req); err != nil {
			outcome.Err = err
		}

		result.Outcomes[i] = outcome
		m.Log.Info().Uint64("nonce", outcome.Nonce).Bool("ok", outcome.Err == nil).Msg("request dispatched")
	}

	return result, nil
}
