// Package host defines the capability a chain integration must provide:
// read/write access to the chain's own clock and storage, and the few
// consensus-state queries every handler needs regardless of which
// consensus.Client family is in play. Handlers never touch a database
// directly; they only ever see a Host.
package host

import (
	"time"

	"github.com/polytope-labs/go-ismp/types"
)

// Host is implemented once per chain integration (testutil/memhost is the
// in-memory reference used by this module's own tests). All methods are
// synchronous: the transaction processor that embeds a Host is expected to
// call exactly one handler per chain transaction and to roll the whole
// transaction back on error, so Host implementations never need their own
// compensating writes.
type Host interface {
	// HostStateMachine identifies the chain this Host runs on.
	HostStateMachine() types.StateMachine

	// Timestamp is the host chain's current wall-clock time.
	Timestamp() time.Duration

	// LatestCommitmentHeight returns the most recent height this host has
	// committed a StateCommitment for, for the given tracked chain, or
	// (0, nil) if no commitment has ever been stored for it.
	LatestCommitmentHeight(id types.StateMachineId) (uint64, error)

	// StateMachineCommitment returns the commitment this host holds for a
	// tracked chain at a specific height. Returns
	// ismperrors.ErrStateCommitmentNotFound if absent.
	StateMachineCommitment(height types.StateMachineHeight) (types.StateCommitment, error)

	// StoreStateMachineCommitment persists a newly verified commitment.
	StoreStateMachineCommitment(height types.StateMachineHeight, commitment types.StateCommitment) error

	// StoreLatestCommitmentHeight advances the latest tracked height for a
	// StateMachineId. Callers are responsible for only ever calling this
	// with a strictly increasing height; the host does not re-validate
	// monotonicity.
	StoreLatestCommitmentHeight(id types.StateMachineId, height uint64) error

	// FreezeStateMachine marks height, and implicitly every height at or
	// above it, as frozen for height.Id.
	FreezeStateMachine(height types.StateMachineHeight) error

	// ConsensusUpdateTime returns the host-local time at which
	// consensusStateId was last successfully updated.
	ConsensusUpdateTime(id types.ConsensusStateId) (time.Duration, error)

	// StoreConsensusUpdateTime records the host-local time of an update.
	StoreConsensusUpdateTime(id types.ConsensusStateId, updateTime time.Duration) error

	// ConsensusState returns the opaque, client-specific trusted state
	// blob tracked under consensusStateId.
	ConsensusState(id types.ConsensusStateId) ([]byte, error)

	// StoreConsensusState persists an updated trusted state blob.
	StoreConsensusState(id types.ConsensusStateId, state []byte) error

	// IsStateMachineFrozen reports whether height's tracked chain instance
	// has been frozen (e.g. by a fraud proof) at or above height.
	IsStateMachineFrozen(height types.StateMachineHeight) (bool, error)

	// IsConsensusClientFrozen reports whether the consensus state itself
	// has been frozen.
	IsConsensusClientFrozen(id types.ConsensusStateId) (bool, error)

	// FreezeConsensusClient marks a consensus state as permanently
	// untrusted, typically after a successful fraud proof.
	FreezeConsensusClient(id types.ConsensusStateId) error

	// IsExpired reports whether updateTime is older than the consensus
	// client's unbonding period, measured against Timestamp().
	IsExpired(id types.ConsensusStateId) (bool, error)

	// ChallengePeriod returns the minimum duration that must elapse
	// between a consensus update and any proof being verified against it,
	// for the given client family.
	ChallengePeriod(id types.ConsensusClientId) (time.Duration, error)

	// ConsensusClientId returns the consensus client family responsible
	// for the given tracked consensus state.
	ConsensusClientId(id types.ConsensusStateId) (types.ConsensusClientId, error)

	// StoreConsensusClientId records which client family owns a newly
	// created consensus state, during CreateConsensusClient.
	StoreConsensusClientId(id types.ConsensusStateId, clientId types.ConsensusClientId) error

	// RequestCommitment returns the stored commitment hash for an
	// outbound request, keyed by its canonical commitment key. Returns
	// ismperrors.ErrRequestCommitmentNotFound if absent.
	RequestCommitment(commitment types.Commitment) (types.Commitment, error)

	// StoreRequestCommitment persists an outbound request's commitment,
	// keyed by its own hash, so later responses/timeouts can look it up.
	StoreRequestCommitment(commitment types.Commitment) error

	// DeleteRequestCommitment removes an outbound request's commitment
	// once it has been answered or timed out, enforcing at-most-once
	// delivery. Deleting it is itself the replay guard for responses and
	// timeouts: a second delivery finds no commitment and fails
	// RequestCommitmentNotFound rather than re-dispatching.
	DeleteRequestCommitment(commitment types.Commitment) error
}
