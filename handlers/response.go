package handlers

import (
	"context"
	"fmt"

	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// ResponseResult aggregates the per-item outcomes of a ResponseMessage.
type ResponseResult struct {
	Outcomes []DispatchOutcome
}

// HandleResponses verifies a batch of inbound responses against one
// membership proof, requires each to match an outstanding outbound
// request commitment, delivers it to the originating module, and deletes
// the commitment to prevent replay (spec §4.5, ResponseMessage).
func (m *Module) HandleResponses(ctx context.Context, msg types.ResponseMessage) (*ResponseResult, error) {
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

	// Post responses are proven by their own commitment hash, the same way
	// outbound Post requests are. Get responses are never hashed or
	// committed outbound (spec §4.6, §9): their key/value pairs are proven
	// directly against the remote root instead.
	var items []consensus.MembershipItem
	for _, resp := range msg.Responses {
		req := resp.Request
		reqCommitment := commitment.HashRequest(req)
		if _, err := m.Host.RequestCommitment(reqCommitment); err != nil {
			return nil, &ismperrors.RequestCommitmentNotFound{Nonce: req.Nonce(), Source: req.SourceChain(), Dest: req.DestChain()}
		}

		if req.IsGet() {
			for _, kv := range resp.GetValues {
				items = append(items, consensus.MembershipItem{Key: kv.Key, Value: kv.Value})
			}
			continue
		}

		respCommitment := commitment.HashResponse(resp)
		items = append(items, consensus.MembershipItem{Key: client.StateTrieKey(respCommitment), Value: respCommitment[:]})
	}
	if err := client.VerifyMembership(root, msg.Proof.Height.Height, msg.Proof.Proof, items); err != nil {
		return nil, fmt.Errorf("%w: %v", ismperrors.ErrMembershipProofVerificationFailed, err)
	}

	result := &ResponseResult{Outcomes: make([]DispatchOutcome, len(msg.Responses))}
	for i, resp := range msg.Responses {
		req := resp.Request
		outcome := DispatchOutcome{Source: req.SourceChain(), Dest: req.DestChain(), Nonce: req.Nonce()}

		if err := m.Router.WriteResponse(resp); err != nil {
			outcome.Err = err
		} else {
			reqCommitment := commitment.HashRequest(req)
			if err := m.Host.DeleteRequestCommitment(reqCommitment); err != nil {
				outcome.Err = err
			}
		}

		result.Outcomes[i] = outcome
		m.Log.Info().Uint64("nonce", outcome.Nonce).Bool("ok", outcome.Err == nil).Msg("response delivered")
	}

	return result, nil
}
