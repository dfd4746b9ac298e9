package handlers

import (
	"context"

	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// StateTransition records one accepted commitment advance during a
// consensus update: the previous latest height for id (0 if none existed)
// and the newly stored height.
type StateTransition struct {
	Id       types.StateMachineId
	Previous uint64
	New      types.StateMachineHeight
}

// ConsensusUpdateResult is the outcome of a successful UpdateConsensusClient
// call.
type ConsensusUpdateResult struct {
	ClientId         types.ConsensusClientId
	ConsensusStateId types.ConsensusStateId
	StateUpdates     []StateTransition
}

// UpdateConsensusClient runs the consensus update algorithm (spec §4.4):
// resolve the client, gate on frozen/challenge-period/expiry, verify the
// consensus proof, persist the new trusted state, and fold in every
// intermediate state the proof attests to, skipping frozen, stale or
// already-recorded heights. The first occurrence of a height within one
// update wins; later duplicates at the same height fall into the
// already-exists skip.
func (m *Module) UpdateConsensusClient(ctx context.Context, msg types.ConsensusMessage) (*ConsensusUpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := m.Log.With().Str("op", "update_consensus_client").Str("consensus_state_id", msg.ConsensusStateId.String()).Logger()

	clientId, err := m.Host.ConsensusClientId(msg.ConsensusStateId)
	if err != nil {
		return nil, &ismperrors.ConsensusStateIdNotRecognized{ConsensusStateId: msg.ConsensusStateId}
	}

	trusted, err := m.Host.ConsensusState(msg.ConsensusStateId)
	if err != nil {
		return nil, err
	}
	updateTime, err := m.Host.ConsensusUpdateTime(msg.ConsensusStateId)
	if err != nil {
		return nil, err
	}
	delay, err := m.Host.ChallengePeriod(clientId)
	if err != nil {
		return nil, err
	}
	now := m.Host.Timestamp()

	frozen, err := m.Host.IsConsensusClientFrozen(msg.ConsensusStateId)
	if err != nil {
		return nil, err
	}
	if frozen {
		return nil, &ismperrors.FrozenConsensusClient{Id: msg.ConsensusStateId}
	}

	if now-updateTime <= delay {
		return nil, &ismperrors.ChallengePeriodNotElapsed{ClientId: clientId, Now: now, UpdateTime: updateTime}
	}

	expired, err := m.Host.IsExpired(msg.ConsensusStateId)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &ismperrors.UnbondingPeriodElapsed{ConsensusId: msg.ConsensusStateId}
	}

	client, err := m.Registry.Get(clientId)
	if err != nil {
		return nil, err
	}

	newTrusted, updates, err := client.VerifyConsensus(trusted, msg.ConsensusProof)
	if err != nil {
		return nil, &ismperrors.ImplementationSpecific{Message: err.Error()}
	}

	if err := m.Host.StoreConsensusState(msg.ConsensusStateId, newTrusted); err != nil {
		return nil, err
	}
	if err := m.Host.StoreConsensusUpdateTime(msg.ConsensusStateId, now); err != nil {
		return nil, err
	}

	var transitions []StateTransition
	seen := make(map[types.StateMachineId]map[uint64]bool)
	for _, u := range updates {
		id := types.StateMachineId{StateId: u.StateMachine, ConsensusStateId: msg.ConsensusStateId}
		h := u.Intermediate.Height
		sh := types.StateMachineHeight{Id: id, Height: h}

		if seen[id] == nil {
			seen[id] = make(map[uint64]bool)
		}
		if seen[id][h] {
			continue
		}

		frozenAt, err := m.Host.IsStateMachineFrozen(sh)
		if err != nil {
			return nil, err
		}
		if frozenAt {
			continue
		}

		prev, err := m.Host.LatestCommitmentHeight(id)
		if err != nil {
			return nil, err
		}
		if prev > h {
			continue
		}

		if _, err := m.Host.StateMachineCommitment(sh); err == nil {
			continue
		}

		if err := m.Host.StoreStateMachineCommitment(sh, u.Intermediate.Commitment); err != nil {
			return nil, err
		}
		if err := m.Host.StoreLatestCommitmentHeight(id, h); err != nil {
			return nil, err
		}

		seen[id][h] = true
		transitions = append(transitions, StateTransition{Id: id, Previous: prev, New: sh})
	}

	log.Info().Int("updates", len(transitions)).Msg("consensus client updated")
	return &ConsensusUpdateResult{ClientId: clientId, ConsensusStateId: msg.ConsensusStateId, StateUpdates: transitions}, nil
}
