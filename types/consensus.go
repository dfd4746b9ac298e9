package types

import (
	"fmt"
	"time"
)

// ConsensusClientId identifies a verification algorithm (a "client family"),
// e.g. the Tendermint light client or the sync-committee Ethereum client.
type ConsensusClientId [4]byte

func (id ConsensusClientId) String() string {
	return string(id[:])
}

// NewConsensusClientId packs the first 4 bytes of s (space-padded if
// shorter) into a ConsensusClientId, the same convention ICS client ids use
// on-chain (e.g. "07-tendermint" truncated at boot to a stable 4-byte tag).
func NewConsensusClientId(s string) ConsensusClientId {
	var id ConsensusClientId
	copy(id[:], padTo4(s))
	return id
}

// ConsensusStateId identifies a single trusted state instance tracked by a
// specific ConsensusClientId.
type ConsensusStateId [4]byte

func (id ConsensusStateId) String() string {
	return string(id[:])
}

// NewConsensusStateId packs the first 4 bytes of s (space-padded if
// shorter) into a ConsensusStateId.
func NewConsensusStateId(s string) ConsensusStateId {
	var id ConsensusStateId
	copy(id[:], padTo4(s))
	return id
}

func padTo4(s string) []byte {
	b := []byte(s)
	if len(b) >= 4 {
		return b[:4]
	}
	out := make([]byte, 4)
	copy(out, b)
	for i := len(b); i < 4; i++ {
		out[i] = ' '
	}
	return out
}

// StateMachineId is a (remote state machine, tracking consensus state) pair:
// it identifies one tracked chain instance.
type StateMachineId struct {
	StateId          StateMachine
	ConsensusStateId ConsensusStateId
}

func (id StateMachineId) String() string {
	return fmt.Sprintf("%s/%s", id.StateId, id.ConsensusStateId)
}

// StateMachineHeight is a height within one tracked chain instance. Heights
// within one StateMachineId are totally ordered.
type StateMachineHeight struct {
	Id     StateMachineId
	Height uint64
}

func (h StateMachineHeight) String() string {
	return fmt.Sprintf("%s@%d", h.Id, h.Height)
}

// Compare orders two heights of the same StateMachineId; heights of
// different ids are incomparable and Compare panics if called on them, as
// no handler ever compares heights across ids.
func (h StateMachineHeight) Compare(other StateMachineHeight) int {
	if h.Id != other.Id {
		panic("types: cannot compare StateMachineHeight across different StateMachineIds")
	}
	switch {
	case h.Height < other.Height:
		return -1
	case h.Height > other.Height:
		return 1
	default:
		return 0
	}
}

// StateCommitment is the root of a remote chain at a height: a timestamp
// plus one or two Merkle-root-like hashes summarising the chain's state.
type StateCommitment struct {
	Timestamp time.Duration
	// IsmpRoot is an optional secondary root dedicated to ISMP request/
	// response commitments, distinct from the chain's general state root.
	IsmpRoot  *[32]byte
	StateRoot [32]byte
}

// IntermediateState is a single (height, commitment) pair yielded by a
// consensus client's VerifyConsensus call.
type IntermediateState struct {
	Height     uint64
	Commitment StateCommitment
}

// StateMachineUpdate tags an IntermediateState with which remote state
// machine it describes: a single consensus proof (e.g. a relay chain
// block) can attest to commitments for several distinct parachains at
// once, so VerifyConsensus returns one of these per attested chain.
type StateMachineUpdate struct {
	StateMachine StateMachine
	Intermediate IntermediateState
}
