// Package consensus defines the polymorphic consensus-client capability:
// one implementation per light-client family (Tendermint, beacon-chain
// sync committees, a pure Merkle relay, ...). The handler core only ever
// holds a Client behind this interface, selected by ConsensusClientId out
// of a closed, boot-configured Registry — never by open-ended dynamic
// dispatch.
package consensus

import (
	"sync"
	"time"

	"github.com/polytope-labs/go-ismp/types"

	"github.com/polytope-labs/go-ismp/ismperrors"
)

// MembershipItem is one (key, value) pair a RequestMessage or
// ResponseMessage proof attests to.
type MembershipItem struct {
	Key   []byte
	Value []byte
}

// Client verifies everything chain-specific: consensus proofs, state
// proofs (membership/non-membership), and the fraud proofs that freeze a
// misbehaving chain. All methods are pure functions of their arguments and
// the trusted state handed to them; a Client never touches a host.Host
// directly, so the same Client value can serve many tracked consensus
// states of its family.
type Client interface {
	// VerifyConsensus checks a consensus proof against the trusted state
	// blob, returning the updated trusted state and the set of
	// (state machine, intermediate state) pairs it attests to.
	VerifyConsensus(trustedState []byte, proof []byte) (newTrustedState []byte, updates []types.StateMachineUpdate, err error)

	// VerifyMembership checks that every (key, value) pair in items is
	// present in the Merkle tree committed to by root, under a single
	// proof covering the whole batch — one RequestMessage or
	// ResponseMessage is proven by exactly one proof.
	VerifyMembership(root types.StateCommitment, height uint64, proof []byte, items []MembershipItem) error

	// VerifyNonMembership checks that key is absent from the Merkle tree
	// committed to by root.
	VerifyNonMembership(root types.StateCommitment, height uint64, proof []byte, key []byte) error

	// StateTrieKey returns the trie key under which a request/response
	// commitment is expected to be stored by this client's counterpart
	// chain, given the commitment hash.
	StateTrieKey(commitment types.Commitment) []byte

	// VerifyFraudProof checks that proof1 and proof2 attest to two
	// conflicting states at the same height under trustedState.
	VerifyFraudProof(trustedState []byte, proof1, proof2 []byte) error

	// UnbondingPeriod is the duration after which an un-updated
	// consensus state of this family is considered expired.
	UnbondingPeriod() time.Duration
}

// Registry is a closed, boot-configured map from ConsensusClientId to the
// Client implementation responsible for that family. Registration happens
// during node startup; the RWMutex exists only to make the zero-cost
// common case (many concurrent reads, no concurrent writes after boot)
// safe if an integration chooses to register clients lazily.
type Registry struct {
	mu      sync.RWMutex
	clients map[types.ConsensusClientId]Client
}

// NewRegistry builds an empty Registry. Use Register to populate it before
// handing it to the handlers package.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[types.ConsensusClientId]Client)}
}

// Register binds a Client implementation to a consensus client family.
// Re-registering an id overwrites the previous binding.
func (r *Registry) Register(id types.ConsensusClientId, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = client
}

// Get resolves a Client by family id, returning
// ismperrors.ErrUnknownConsensusClient if no such family was registered.
func (r *Registry) Get(id types.ConsensusClientId) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	if !ok {
		return nil, ismperrors.ErrUnknownConsensusClient
	}
	return client, nil
}
