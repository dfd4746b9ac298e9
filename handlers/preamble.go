package handlers

import (
	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// validateStateMachine is the shared preamble for the request, response and
// timeout pipelines (spec §4.5): it enforces that the consensus state
// backing height is live, unfrozen and past its challenge window, and
// returns the consensus.Client the caller should use for proof
// verification.
func (m *Module) validateStateMachine(height types.StateMachineHeight) (consensus.Client, error) {
	stateId := height.Id.ConsensusStateId

	frozenClient, err := m.Host.IsConsensusClientFrozen(stateId)
	if err != nil {
		return nil, err
	}
	if frozenClient {
		return nil, &ismperrors.FrozenConsensusClient{Id: stateId}
	}

	frozenMachine, err := m.Host.IsStateMachineFrozen(height)
	if err != nil {
		return nil, err
	}
	if frozenMachine {
		return nil, &ismperrors.FrozenStateMachine{Height: height}
	}

	clientId, err := m.Host.ConsensusClientId(stateId)
	if err != nil {
		return nil, err
	}

	delay, err := m.Host.ChallengePeriod(clientId)
	if err != nil {
		return nil, err
	}
	updateTime, err := m.Host.ConsensusUpdateTime(stateId)
	if err != nil {
		return nil, err
	}
	now := m.Host.Timestamp()
	if now-updateTime <= delay {
		return nil, &ismperrors.ChallengePeriodNotElapsed{ClientId: clientId, Now: now, UpdateTime: updateTime}
	}

	expired, err := m.Host.IsExpired(stateId)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &ismperrors.UnbondingPeriodElapsed{ConsensusId: stateId}
	}

	return m.Registry.Get(clientId)
}
