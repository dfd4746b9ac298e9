// Package ics23client is a reference consensus.Client backed by a plain
// Merkle commitment: it tracks no consensus algorithm of its own (every
// VerifyConsensus call accepts the first 48 bytes of the proof verbatim as
// the new trusted state), but performs real ICS23 membership/non-membership verification
// against the committed root, using the teacher stack's own
// github.com/cosmos/ics23/go dependency. It is a fit reference for a
// "relay" StateMachineFamily chain whose root is produced by a plain
// Merkle (rather than IAVL/Tendermint light-client) store.
package ics23client

import (
	"encoding/binary"
	"fmt"
	"time"

	gogoproto "github.com/cosmos/gogoproto/proto"
	ics23 "github.com/cosmos/ics23/go"

	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/types"
)

// Client implements consensus.Client. Spec selects which ics23.ProofSpec
// governs proof shape (ics23.TendermintSpec, ics23.IavlSpec, ...);
// UnbondingPeriod is the family's liveness assumption. Tracks is the
// single remote chain this instance attests to: unlike a relay-chain
// light client, this reference implementation does not fan out to
// multiple parachains from one proof.
type Client struct {
	Spec                    *ics23.ProofSpec
	Tracks                  types.StateMachine
	UnbondingPeriodDuration time.Duration
}

// New builds a Client using the Tendermint proof spec and the given
// unbonding period.
func New(tracks types.StateMachine, unbondingPeriod time.Duration) *Client {
	return &Client{Spec: ics23.TendermintSpec, Tracks: tracks, UnbondingPeriodDuration: unbondingPeriod}
}

// VerifyConsensus treats the first 48 bytes of the proof (height, root,
// timestamp) as the next trusted state verbatim; any bytes after them are
// dropped. An external relayer is expected to have already convinced itself the
// committed root is correct (e.g. the root is itself a hash of a
// multi-signature the relayer checked off-band). The single intermediate
// state is the root at the height encoded in the first 8 bytes of proof.
func (c *Client) VerifyConsensus(trustedState []byte, proof []byte) ([]byte, []types.StateMachineUpdate, error) {
	if len(proof) < 48 {
		return nil, nil, fmt.Errorf("ics23client: consensus proof too short: %d bytes", len(proof))
	}
	height := beUint64(proof[:8])
	var root [32]byte
	copy(root[:], proof[8:40])
	timestamp := time.Duration(beUint64(proof[40:48])) * time.Second

	commitment := types.StateCommitment{Timestamp: timestamp, StateRoot: root}
	update := types.StateMachineUpdate{
		StateMachine: c.Tracks,
		Intermediate: types.IntermediateState{Height: height, Commitment: commitment},
	}
	return proof[:48], []types.StateMachineUpdate{update}, nil
}

// VerifyMembership decodes proof as a sequence of length-prefixed ICS23
// CommitmentProof messages, one per item in order, and verifies each
// independently against root. A RequestMessage/ResponseMessage's single
// "proof" is therefore the concatenation of one membership proof per
// request/response in the batch.
func (c *Client) VerifyMembership(root types.StateCommitment, height uint64, proof []byte, items []consensus.MembershipItem) error {
	proofs, err := decodeProofBatch(proof, len(items))
	if err != nil {
		return err
	}
	for i, item := range items {
		if !ics23.VerifyMembership(c.Spec, root.StateRoot[:], proofs[i], item.Key, item.Value) {
			return fmt.Errorf("ics23client: membership verification failed for key %x", item.Key)
		}
	}
	return nil
}

func (c *Client) VerifyNonMembership(root types.StateCommitment, height uint64, proof []byte, key []byte) error {
	commitmentProof, err := decodeProof(proof)
	if err != nil {
		return err
	}
	if !ics23.VerifyNonMembership(c.Spec, root.StateRoot[:], commitmentProof, key) {
		return fmt.Errorf("ics23client: non-membership verification failed for key %x", key)
	}
	return nil
}

// StateTrieKey uses the commitment hash directly as the trie key: this
// client's counterpart chain is expected to store ISMP commitments under
// their own hash, unprefixed.
func (c *Client) StateTrieKey(commitment types.Commitment) []byte {
	return commitment[:]
}

// VerifyFraudProof is unimplemented for this reference client: a plain
// Merkle relay has no consensus algorithm to equivocate, so there is
// nothing for two proofs to conflict about.
func (c *Client) VerifyFraudProof(trustedState []byte, proof1, proof2 []byte) error {
	return fmt.Errorf("ics23client: fraud proofs are not supported by this consensus client family")
}

func (c *Client) UnbondingPeriod() time.Duration {
	return c.UnbondingPeriodDuration
}

func decodeProof(proof []byte) (*ics23.CommitmentProof, error) {
	var commitmentProof ics23.CommitmentProof
	if err := gogoproto.Unmarshal(proof, &commitmentProof); err != nil {
		return nil, fmt.Errorf("ics23client: decoding commitment proof: %w", err)
	}
	return &commitmentProof, nil
}

// decodeProofBatch splits proof into count length-prefixed (4-byte
// big-endian length) CommitmentProof messages.
func decodeProofBatch(proof []byte, count int) ([]*ics23.CommitmentProof, error) {
	proofs := make([]*ics23.CommitmentProof, 0, count)
	rest := proof
	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("ics23client: truncated proof batch: expected %d entries, got %d", count, i)
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return nil, fmt.Errorf("ics23client: truncated proof batch entry %d", i)
		}
		p, err := decodeProof(rest[:n])
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
		rest = rest[n:]
	}
	return proofs, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b[:8] {
		v = v<<8 | uint64(x)
	}
	return v
}
