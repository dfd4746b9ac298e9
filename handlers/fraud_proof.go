package handlers

import (
	"context"

	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// FraudProofResult confirms a consensus state was frozen.
type FraudProofResult struct {
	ConsensusStateId types.ConsensusStateId
}

// HandleFraudProof verifies two conflicting proofs against the same
// trusted state and, on success, permanently freezes the consensus state
// (spec §4.5, Fraud-proof handler).
func (m *Module) HandleFraudProof(ctx context.Context, msg types.FraudProofMessage) (*FraudProofResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clientId, err := m.Host.ConsensusClientId(msg.ConsensusStateId)
	if err != nil {
		return nil, &ismperrors.ConsensusStateIdNotRecognized{ConsensusStateId: msg.ConsensusStateId}
	}
	trusted, err := m.Host.ConsensusState(msg.ConsensusStateId)
	if err != nil {
		return nil, err
	}
	client, err := m.Registry.Get(clientId)
	if err != nil {
		return nil, err
	}

	if err := client.VerifyFraudProof(trusted, msg.Proof1, msg.Proof2); err != nil {
		return nil, &ismperrors.ImplementationSpecific{Message: err.Error()}
	}

	if err := m.Host.FreezeConsensusClient(msg.ConsensusStateId); err != nil {
		return nil, err
	}
	if err := m.Host.StoreConsensusUpdateTime(msg.ConsensusStateId, m.Host.Timestamp()); err != nil {
		return nil, err
	}

	m.Log.Warn().Str("consensus_state_id", msg.ConsensusStateId.String()).Msg("consensus client frozen by fraud proof")
	return &FraudProofResult{ConsensusStateId: msg.ConsensusStateId}, nil
}
