// Package memhost is the in-memory reference implementation of host.Host
// and router.Router used by this module's own test suite and by
// cmd/ismpd serve. It replaces the original Rust test suite's RefCell-based
// mock (ismp-testsuite/src/mocks.rs) with explicit sync.Mutex-guarded maps,
// per spec §9's design note that the production contract is single-threaded
// transactional storage rather than interior mutability.
package memhost

import (
	"sync"
	"time"

	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// Host is a plain in-memory host.Host. The zero value is not usable; build
// one with New. All state lives behind mu so a Host can be shared safely
// between the handlers.Module that calls it as a host.Host and a Router
// that writes outbound commitments through the same storage.
type Host struct {
	mu sync.Mutex

	hostStateMachine types.StateMachine
	now              time.Duration

	consensusState      map[types.ConsensusStateId][]byte
	consensusClientId   map[types.ConsensusStateId]types.ConsensusClientId
	consensusUpdateTime map[types.ConsensusStateId]time.Duration
	consensusFrozen     map[types.ConsensusStateId]bool

	challengePeriod map[types.ConsensusClientId]time.Duration
	unbondingPeriod map[types.ConsensusClientId]time.Duration

	stateCommitments map[types.StateMachineHeight]types.StateCommitment
	latestHeight     map[types.StateMachineId]uint64
	frozenHeights    map[types.StateMachineId]uint64 // minimum frozen height per id

	requestCommitments map[types.Commitment]bool
}

// New builds an empty Host for hostChain. challengePeriods and
// unbondingPeriods key a consensus client family id to the duration a
// freshly-registered client should enforce; both may be nil, in which case
// ChallengePeriod/IsExpired treat an unconfigured client as having a zero
// challenge period and never expiring (tests register explicitly instead).
func New(hostChain types.StateMachine, challengePeriods, unbondingPeriods map[types.ConsensusClientId]time.Duration) *Host {
	if challengePeriods == nil {
		challengePeriods = make(map[types.ConsensusClientId]time.Duration)
	}
	if unbondingPeriods == nil {
		unbondingPeriods = make(map[types.ConsensusClientId]time.Duration)
	}
	return &Host{
		hostStateMachine:    hostChain,
		consensusState:      make(map[types.ConsensusStateId][]byte),
		consensusClientId:   make(map[types.ConsensusStateId]types.ConsensusClientId),
		consensusUpdateTime: make(map[types.ConsensusStateId]time.Duration),
		consensusFrozen:     make(map[types.ConsensusStateId]bool),
		challengePeriod:     challengePeriods,
		unbondingPeriod:     unbondingPeriods,
		stateCommitments:    make(map[types.StateMachineHeight]types.StateCommitment),
		latestHeight:        make(map[types.StateMachineId]uint64),
		frozenHeights:       make(map[types.StateMachineId]uint64),
		requestCommitments:  make(map[types.Commitment]bool),
	}
}

// SetTimestamp pins the host clock, for deterministic challenge-window and
// unbonding tests. AdvanceTimestamp moves it forward by delta; the clock is
// never allowed to move backwards, matching spec §5's monotonicity
// assumption.
func (h *Host) SetTimestamp(t time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t < h.now {
		panic("memhost: clock must be monotonic non-decreasing")
	}
	h.now = t
}

func (h *Host) AdvanceTimestamp(delta time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if delta < 0 {
		panic("memhost: clock must be monotonic non-decreasing")
	}
	h.now += delta
}

func (h *Host) HostStateMachine() types.StateMachine { return h.hostStateMachine }

func (h *Host) Timestamp() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *Host) LatestCommitmentHeight(id types.StateMachineId) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latestHeight[id], nil
}

func (h *Host) StateMachineCommitment(height types.StateMachineHeight) (types.StateCommitment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.stateCommitments[height]
	if !ok {
		return types.StateCommitment{}, ismperrors.ErrStateCommitmentNotFound
	}
	return c, nil
}

func (h *Host) StoreStateMachineCommitment(height types.StateMachineHeight, commitment types.StateCommitment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stateCommitments[height] = commitment
	return nil
}

func (h *Host) StoreLatestCommitmentHeight(id types.StateMachineId, height uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latestHeight[id] = height
	return nil
}

func (h *Host) FreezeStateMachine(height types.StateMachineHeight) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	current, ok := h.frozenHeights[height.Id]
	if !ok || height.Height < current {
		h.frozenHeights[height.Id] = height.Height
	}
	return nil
}

func (h *Host) ConsensusUpdateTime(id types.ConsensusStateId) (time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.consensusUpdateTime[id]
	if !ok {
		return 0, ismperrors.ErrConsensusStateNotFound
	}
	return t, nil
}

func (h *Host) StoreConsensusUpdateTime(id types.ConsensusStateId, updateTime time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consensusUpdateTime[id] = updateTime
	return nil
}

func (h *Host) ConsensusState(id types.ConsensusStateId) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.consensusState[id]
	if !ok {
		return nil, ismperrors.ErrConsensusStateNotFound
	}
	return s, nil
}

func (h *Host) StoreConsensusState(id types.ConsensusStateId, state []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consensusState[id] = state
	return nil
}

func (h *Host) IsStateMachineFrozen(height types.StateMachineHeight) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frozenAt, ok := h.frozenHeights[height.Id]
	if !ok {
		return false, nil
	}
	return height.Height >= frozenAt, nil
}

func (h *Host) IsConsensusClientFrozen(id types.ConsensusStateId) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consensusFrozen[id], nil
}

func (h *Host) FreezeConsensusClient(id types.ConsensusStateId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consensusFrozen[id] = true
	return nil
}

func (h *Host) IsExpired(id types.ConsensusStateId) (bool, error) {
	h.mu.Lock()
	clientId, ok := h.consensusClientId[id]
	if !ok {
		h.mu.Unlock()
		return false, ismperrors.ErrConsensusStateIdNotRecognized
	}
	unbonding := h.unbondingPeriod[clientId]
	updateTime := h.consensusUpdateTime[id]
	now := h.now
	h.mu.Unlock()

	if unbonding == 0 {
		return false, nil
	}
	return now-updateTime > unbonding, nil
}

func (h *Host) ChallengePeriod(clientId types.ConsensusClientId) (time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.challengePeriod[clientId], nil
}

func (h *Host) ConsensusClientId(id types.ConsensusStateId) (types.ConsensusClientId, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clientId, ok := h.consensusClientId[id]
	if !ok {
		return types.ConsensusClientId{}, ismperrors.ErrConsensusStateIdNotRecognized
	}
	return clientId, nil
}

func (h *Host) StoreConsensusClientId(id types.ConsensusStateId, clientId types.ConsensusClientId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consensusClientId[id] = clientId
	return nil
}

func (h *Host) RequestCommitment(commitment types.Commitment) (types.Commitment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requestCommitments[commitment] {
		return types.Commitment{}, ismperrors.ErrRequestCommitmentNotFound
	}
	return commitment, nil
}

func (h *Host) StoreRequestCommitment(commitment types.Commitment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requestCommitments[commitment] = true
	return nil
}

func (h *Host) DeleteRequestCommitment(commitment types.Commitment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.requestCommitments, commitment)
	return nil
}

