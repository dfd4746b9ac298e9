package handlers

import (
	"context"

	"github.com/polytope-labs/go-ismp/types"
)

// CreateConsensusClientResult confirms a new tracked chain was bootstrapped.
type CreateConsensusClientResult struct {
	ConsensusStateId types.ConsensusStateId
	Genesis          []StateTransition
}

// CreateConsensusClient bootstraps a brand-new tracked consensus state
// (spec §6, the admin message): it is not routed through Handle, since it
// has no proof to verify against existing state — it establishes the
// initial trust root a ConsensusMessage will later build on. Rejects with
// ismperrors.ErrUnknownConsensusClient if the client family is not
// registered.
func (m *Module) CreateConsensusClient(ctx context.Context, msg types.CreateConsensusClient) (*CreateConsensusClientResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.Registry.Get(msg.ConsensusClientId); err != nil {
		return nil, err
	}

	now := m.Host.Timestamp()

	if err := m.Host.StoreConsensusState(msg.ConsensusStateId, msg.ConsensusState); err != nil {
		return nil, err
	}
	if err := m.Host.StoreConsensusClientId(msg.ConsensusStateId, msg.ConsensusClientId); err != nil {
		return nil, err
	}
	if err := m.Host.StoreConsensusUpdateTime(msg.ConsensusStateId, now); err != nil {
		return nil, err
	}

	transitions := make([]StateTransition, 0, len(msg.StateMachineCommitments))
	for _, entry := range msg.StateMachineCommitments {
		sh := types.StateMachineHeight{Id: entry.Id, Height: entry.Commitment.Height}
		if err := m.Host.StoreStateMachineCommitment(sh, entry.Commitment.Commitment); err != nil {
			return nil, err
		}
		if err := m.Host.StoreLatestCommitmentHeight(entry.Id, entry.Commitment.Height); err != nil {
			return nil, err
		}
		transitions = append(transitions, StateTransition{Id: entry.Id, Previous: 0, New: sh})
	}

	m.Log.Info().
		Str("consensus_state_id", msg.ConsensusStateId.String()).
		Str("consensus_client_id", msg.ConsensusClientId.String()).
		Int("genesis_heights", len(transitions)).
		Msg("consensus client created")

	return &CreateConsensusClientResult{ConsensusStateId: msg.ConsensusStateId, Genesis: transitions}, nil
}
