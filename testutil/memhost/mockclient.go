package memhost

import (
	"time"

	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/types"
)

// MockClient is a consensus.Client whose every verification trivially
// succeeds, ported from ismp-testsuite/src/mocks.rs's MockClient: useful for
// exercising the handler pipeline (routing, commitments, duplicate
// suppression, the challenge/expiry gates) independently of any real proof
// system. consensus/ics23client.Client is the genuine reference client;
// MockClient exists purely as a harness double, the same division the
// original test suite draws between MockClient and a real light client.
type MockClient struct {
	Tracks                  types.StateMachine
	UnbondingPeriodDuration time.Duration
}

func (c *MockClient) VerifyConsensus(trustedState []byte, proof []byte) ([]byte, []types.StateMachineUpdate, error) {
	return trustedState, nil, nil
}

func (c *MockClient) VerifyMembership(root types.StateCommitment, height uint64, proof []byte, items []consensus.MembershipItem) error {
	return nil
}

func (c *MockClient) VerifyNonMembership(root types.StateCommitment, height uint64, proof []byte, key []byte) error {
	return nil
}

func (c *MockClient) StateTrieKey(commitment types.Commitment) []byte {
	return commitment[:]
}

func (c *MockClient) VerifyFraudProof(trustedState []byte, proof1, proof2 []byte) error {
	return nil
}

func (c *MockClient) UnbondingPeriod() time.Duration {
	return c.UnbondingPeriodDuration
}
