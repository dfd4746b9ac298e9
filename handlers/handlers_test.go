package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/handlers"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/router"
	"github.com/polytope-labs/go-ismp/testutil/memhost"
	"github.com/polytope-labs/go-ismp/types"
)

var (
	hostChain   = types.StateMachine{Family: types.Polkadot, StateId: 1000}
	remoteChain = types.StateMachine{Family: types.Kusama, StateId: 2000}
	clientId    = types.NewConsensusClientId("mock")
)

// testEnv bundles a freshly wired Module with its backing memhost.Host so
// tests can reach into storage directly (SetTimestamp, FreezeStateMachine,
// StoreConsensusUpdateTime) the way a real integration's own test suite
// would poke its own mock host.
type testEnv struct {
	module   *handlers.Module
	host     *memhost.Host
	router   *memhost.Router
	registry *consensus.Registry
	stateId  types.ConsensusStateId
	id       types.StateMachineId
}

func newEnv(t *testing.T, challengePeriod, unbondingPeriod time.Duration, client consensus.Client) *testEnv {
	t.Helper()
	stateId := types.NewConsensusStateId("demo")
	id := types.StateMachineId{StateId: remoteChain, ConsensusStateId: stateId}

	registry := consensus.NewRegistry()
	registry.Register(clientId, client)

	host := memhost.New(hostChain,
		map[types.ConsensusClientId]time.Duration{clientId: challengePeriod},
		map[types.ConsensusClientId]time.Duration{clientId: unbondingPeriod},
	)
	rtr := memhost.NewRouter(host)
	module := handlers.New(host, rtr, registry, zerolog.Nop())

	require.NoError(t, host.StoreConsensusState(stateId, []byte("trusted")))
	require.NoError(t, host.StoreConsensusClientId(stateId, clientId))
	require.NoError(t, host.StoreConsensusUpdateTime(stateId, 0))

	return &testEnv{module: module, host: host, router: rtr, registry: registry, stateId: stateId, id: id}
}

// fakeClient is a consensus.Client whose behavior is entirely test-supplied,
// used where memhost.MockClient's always-succeed defaults are too coarse
// (e.g. S5's specific intermediate-state list).
type fakeClient struct {
	verifyConsensus   func(trusted, proof []byte) ([]byte, []types.StateMachineUpdate, error)
	verifyMembership  func() error
	verifyNonMember   func() error
	stateTrieKey      func(types.Commitment) []byte
	unbondingDuration time.Duration
}

func (c *fakeClient) VerifyConsensus(trusted, proof []byte) ([]byte, []types.StateMachineUpdate, error) {
	if c.verifyConsensus != nil {
		return c.verifyConsensus(trusted, proof)
	}
	return trusted, nil, nil
}

func (c *fakeClient) VerifyMembership(root types.StateCommitment, height uint64, proof []byte, items []consensus.MembershipItem) error {
	if c.verifyMembership != nil {
		return c.verifyMembership()
	}
	return nil
}

func (c *fakeClient) VerifyNonMembership(root types.StateCommitment, height uint64, proof []byte, key []byte) error {
	if c.verifyNonMember != nil {
		return c.verifyNonMember()
	}
	return nil
}

func (c *fakeClient) StateTrieKey(commitment types.Commitment) []byte {
	if c.stateTrieKey != nil {
		return c.stateTrieKey(commitment)
	}
	return commitment[:]
}

func (c *fakeClient) VerifyFraudProof(trusted []byte, p1, p2 []byte) error { return nil }
func (c *fakeClient) UnbondingPeriod() time.Duration                      { return c.unbondingDuration }

func mockClient() *memhost.MockClient {
	return &memhost.MockClient{Tracks: remoteChain, UnbondingPeriodDuration: 365 * 24 * time.Hour}
}

// --- S1: challenge-window rejection ---

func TestS1ChallengeWindowRejection(t *testing.T) {
	const delay = 3600 * time.Second
	env := newEnv(t, delay, 365*24*time.Hour, mockClient())

	// T, last update at T-1800.
	env.host.SetTimestamp(1800 * time.Second)
	require.NoError(t, env.host.StoreConsensusUpdateTime(env.stateId, 0))

	_, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	var challengeErr *ismperrors.ChallengePeriodNotElapsed
	require.ErrorAs(t, err, &challengeErr)

	// Same update_time, now T+3601 relative to it: must succeed.
	env.host.SetTimestamp(delay + time.Second)
	_, err = env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)
}

func TestS1ChallengeWindowBoundaryFails(t *testing.T) {
	const delay = 3600 * time.Second
	env := newEnv(t, delay, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(delay) // exactly equal: must still fail (strict > required)

	_, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	var challengeErr *ismperrors.ChallengePeriodNotElapsed
	require.ErrorAs(t, err, &challengeErr)
}

// --- S2: expiry rejection ---

func TestS2ExpiryBoundaryNotExceeded(t *testing.T) {
	const unbonding = 3600 * time.Second
	env := newEnv(t, 0, unbonding, mockClient())
	env.host.SetTimestamp(unbonding) // exactly at the boundary: not yet expired

	_, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)
}

func TestS2ExpiryElapsedFails(t *testing.T) {
	const unbonding = 3600 * time.Second
	env := newEnv(t, 0, unbonding, mockClient())
	env.host.SetTimestamp(unbonding + time.Second)

	_, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	var expiredErr *ismperrors.UnbondingPeriodElapsed
	require.ErrorAs(t, err, &expiredErr)
}

// --- S3: frozen state machine ---

func TestS3FrozenStateMachine(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	frozenHeight := types.StateMachineHeight{Id: env.id, Height: 100}
	require.NoError(t, env.host.FreezeStateMachine(frozenHeight))
	require.NoError(t, env.host.StoreStateMachineCommitment(frozenHeight, types.StateCommitment{Timestamp: time.Second}))

	okHeight := types.StateMachineHeight{Id: env.id, Height: 99}
	require.NoError(t, env.host.StoreStateMachineCommitment(okHeight, types.StateCommitment{Timestamp: time.Second}))

	msgAt100 := types.RequestMessage{Proof: types.Proof{Height: frozenHeight}}
	_, err := env.module.HandleRequests(context.Background(), msgAt100)
	var frozenErr *ismperrors.FrozenStateMachine
	require.ErrorAs(t, err, &frozenErr)

	msgAt99 := types.RequestMessage{Proof: types.Proof{Height: okHeight}}
	_, err = env.module.HandleRequests(context.Background(), msgAt99)
	require.NoError(t, err)
}

// --- S4: outbound duplicate suppression ---

func TestS4OutboundDuplicateSuppression(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())

	req := types.PostRequest(types.Post{
		SourceChain:      hostChain,
		DestChain:        remoteChain,
		Nonce:            0,
		From:             make([]byte, 32),
		To:               make([]byte, 32),
		TimeoutTimestamp: 0,
		Data:             make([]byte, 64),
	})

	_, err := env.router.Dispatch(req)
	require.NoError(t, err)

	c := commitment.HashRequest(req)
	stored, err := env.host.RequestCommitment(c)
	require.NoError(t, err)
	require.Equal(t, c, stored)

	_, err = env.router.Dispatch(req)
	var dispatchErr *router.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
}

func TestS4OutboundResponseDuplicateSuppression(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())

	// The bound request was inbound (source == remote, dest == host): this
	// host received it and is now replying, so WriteResponse must take the
	// commit branch, the symmetric case to S4's outbound request.
	req := types.PostRequest(types.Post{
		SourceChain:      remoteChain,
		DestChain:        hostChain,
		Nonce:            1,
		From:             make([]byte, 32),
		To:               make([]byte, 32),
		TimeoutTimestamp: 0,
		Data:             make([]byte, 64),
	})
	resp := types.PostResponse(req, []byte("reply"))

	require.NoError(t, env.router.WriteResponse(resp))
	err := env.router.WriteResponse(resp)
	var dispatchErr *router.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
}

// --- S5: consensus update monotonicity ---

func TestS5ConsensusUpdateMonotonicity(t *testing.T) {
	client := &fakeClient{
		verifyConsensus: func(trusted, proof []byte) ([]byte, []types.StateMachineUpdate, error) {
			return trusted, []types.StateMachineUpdate{
				{StateMachine: remoteChain, Intermediate: types.IntermediateState{Height: 5, Commitment: types.StateCommitment{Timestamp: 5}}},
				{StateMachine: remoteChain, Intermediate: types.IntermediateState{Height: 3, Commitment: types.StateCommitment{Timestamp: 3}}},
			}, nil
		},
		unbondingDuration: 365 * 24 * time.Hour,
	}
	env := newEnv(t, 0, 365*24*time.Hour, client)
	env.host.SetTimestamp(time.Second)

	res, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)
	require.Len(t, res.StateUpdates, 1)
	require.Equal(t, uint64(5), res.StateUpdates[0].New.Height)

	latest, err := env.host.LatestCommitmentHeight(env.id)
	require.NoError(t, err)
	require.Equal(t, uint64(5), latest)
}

func TestS5ConsensusUpdateFirstHeightWinsOnDuplicate(t *testing.T) {
	client := &fakeClient{
		verifyConsensus: func(trusted, proof []byte) ([]byte, []types.StateMachineUpdate, error) {
			return trusted, []types.StateMachineUpdate{
				{StateMachine: remoteChain, Intermediate: types.IntermediateState{Height: 7, Commitment: types.StateCommitment{Timestamp: 70}}},
				{StateMachine: remoteChain, Intermediate: types.IntermediateState{Height: 7, Commitment: types.StateCommitment{Timestamp: 99}}},
			}, nil
		},
		unbondingDuration: 365 * 24 * time.Hour,
	}
	env := newEnv(t, 0, 365*24*time.Hour, client)
	env.host.SetTimestamp(time.Second)

	res, err := env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)
	require.Len(t, res.StateUpdates, 1)

	stored, err := env.host.StateMachineCommitment(types.StateMachineHeight{Id: env.id, Height: 7})
	require.NoError(t, err)
	require.Equal(t, time.Duration(70), stored.Timestamp)
}

// --- S6: timeout requires absence ---

func TestS6TimeoutRequiresElapsedAndAbsence(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	req := types.PostRequest(types.Post{
		SourceChain:      hostChain,
		DestChain:        remoteChain,
		Nonce:            2,
		From:             make([]byte, 32),
		To:               make([]byte, 32),
		TimeoutTimestamp: 100,
		Data:             make([]byte, 64),
	})
	c := commitment.HashRequest(req)
	require.NoError(t, env.host.StoreRequestCommitment(c))

	height99 := types.StateMachineHeight{Id: env.id, Height: 1}
	require.NoError(t, env.host.StoreStateMachineCommitment(height99, types.StateCommitment{Timestamp: 99 * time.Second}))

	tooEarly, err := env.module.HandleTimeouts(context.Background(), types.TimeoutMessage{
		Requests:     []types.Request{req},
		TimeoutProof: types.Proof{Height: height99},
	})
	require.NoError(t, err) // aggregated: no handler-level error, but the item failed
	require.Len(t, tooEarly.Outcomes, 1)
	var notYetErr *ismperrors.RequestTimeoutVerificationFailed
	require.ErrorAs(t, tooEarly.Outcomes[0].Err, &notYetErr)
	// Commitment was not deleted on a failed item.
	_, err = env.host.RequestCommitment(c)
	require.NoError(t, err)

	height101 := types.StateMachineHeight{Id: env.id, Height: 2}
	require.NoError(t, env.host.StoreStateMachineCommitment(height101, types.StateCommitment{Timestamp: 101 * time.Second}))

	res, err := env.module.HandleTimeouts(context.Background(), types.TimeoutMessage{
		Requests:     []types.Request{req},
		TimeoutProof: types.Proof{Height: height101},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	require.NoError(t, res.Outcomes[0].Err)

	_, err = env.host.RequestCommitment(c)
	require.Error(t, err) // deleted after a successful timeout
}

func TestS6TimeoutFailsBeforeElapsed(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	req := types.PostRequest(types.Post{
		SourceChain:      hostChain,
		DestChain:        remoteChain,
		Nonce:            3,
		From:             make([]byte, 32),
		To:               make([]byte, 32),
		TimeoutTimestamp: 100,
		Data:             make([]byte, 64),
	})
	c := commitment.HashRequest(req)
	require.NoError(t, env.host.StoreRequestCommitment(c))

	height := types.StateMachineHeight{Id: env.id, Height: 1}
	require.NoError(t, env.host.StoreStateMachineCommitment(height, types.StateCommitment{Timestamp: 99 * time.Second}))

	res, err := env.module.HandleTimeouts(context.Background(), types.TimeoutMessage{
		Requests:     []types.Request{req},
		TimeoutProof: types.Proof{Height: height},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	var timeoutErr *ismperrors.RequestTimeoutVerificationFailed
	require.ErrorAs(t, res.Outcomes[0].Err, &timeoutErr)
}

// --- Invariant 4: freeze is idempotent and permanent ---

func TestFreezeConsensusClientIdempotentAndPermanent(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	res, err := env.module.HandleFraudProof(context.Background(), types.FraudProofMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)
	require.Equal(t, env.stateId, res.ConsensusStateId)

	// Idempotent: freezing again does not error.
	_, err = env.module.HandleFraudProof(context.Background(), types.FraudProofMessage{ConsensusStateId: env.stateId})
	require.NoError(t, err)

	// Any subsequent consensus update now fails frozen.
	_, err = env.module.UpdateConsensusClient(context.Background(), types.ConsensusMessage{ConsensusStateId: env.stateId})
	var frozenErr *ismperrors.FrozenConsensusClient
	require.ErrorAs(t, err, &frozenErr)

	// And any request message against this consensus state too.
	_, err = env.module.HandleRequests(context.Background(), types.RequestMessage{
		Proof: types.Proof{Height: types.StateMachineHeight{Id: env.id, Height: 1}},
	})
	require.ErrorAs(t, err, &frozenErr)
}

// --- CreateConsensusClient admin bootstrap ---

func TestCreateConsensusClientBootstrapsGenesisHeight(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(0)

	freshStateId := types.NewConsensusStateId("fresh")
	freshId := types.StateMachineId{StateId: remoteChain, ConsensusStateId: freshStateId}

	res, err := env.module.CreateConsensusClient(context.Background(), types.CreateConsensusClient{
		ConsensusClientId: clientId,
		ConsensusStateId:  freshStateId,
		ConsensusState:    []byte("genesis"),
		StateMachineCommitments: []types.StateMachineCommitmentEntry{
			{Id: freshId, Commitment: types.IntermediateState{Height: 1, Commitment: types.StateCommitment{Timestamp: 1}}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Genesis, 1)
	require.Equal(t, uint64(0), res.Genesis[0].Previous)

	latest, err := env.host.LatestCommitmentHeight(freshId)
	require.NoError(t, err)
	require.Equal(t, uint64(1), latest)
}

func TestCreateConsensusClientRejectsUnknownClient(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	unknown := types.NewConsensusClientId("none")

	_, err := env.module.CreateConsensusClient(context.Background(), types.CreateConsensusClient{
		ConsensusClientId: unknown,
		ConsensusStateId:  types.NewConsensusStateId("x"),
	})
	require.ErrorIs(t, err, ismperrors.ErrUnknownConsensusClient)
}

// --- Handle dispatcher ---

func TestHandleDispatchesByKind(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	res, err := env.module.Handle(context.Background(), types.NewFraudProofMessage(types.FraudProofMessage{ConsensusStateId: env.stateId}))
	require.NoError(t, err)
	require.Equal(t, types.KindFraudProof, res.Kind)
	require.NotNil(t, res.FraudProof)
}

func TestHandleRejectsMismatchedPayload(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())

	_, err := env.module.Handle(context.Background(), types.Message{Kind: types.KindConsensus})
	require.ErrorIs(t, err, ismperrors.ErrCannotHandleMessage)
}

// --- response handling: Get responses are not hashed ---

func TestHandleResponsesGetResponseNotHashed(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	get := types.GetRequest(types.Get{
		SourceChain: hostChain,
		DestChain:   remoteChain,
		Nonce:       9,
		From:        []byte("from"),
		Keys:        [][]byte{[]byte("k1")},
		Height:      1,
	})
	reqCommitment := commitment.HashRequest(get)
	require.NoError(t, env.host.StoreRequestCommitment(reqCommitment))

	height := types.StateMachineHeight{Id: env.id, Height: 1}
	require.NoError(t, env.host.StoreStateMachineCommitment(height, types.StateCommitment{Timestamp: time.Second}))

	resp := types.GetResponse(get, []types.GetResponseItem{{Key: []byte("k1"), Value: []byte("v1")}})

	require.NotPanics(t, func() {
		_, err := env.module.HandleResponses(context.Background(), types.ResponseMessage{
			Responses: []types.Response{resp},
			Proof:     types.Proof{Height: height},
		})
		require.NoError(t, err)
	})
}

func TestHandleResponsesRequiresOutstandingCommitment(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	env.host.SetTimestamp(time.Second)

	req := types.PostRequest(types.Post{SourceChain: hostChain, DestChain: remoteChain, Nonce: 10})
	resp := types.PostResponse(req, []byte("reply"))

	height := types.StateMachineHeight{Id: env.id, Height: 1}
	require.NoError(t, env.host.StoreStateMachineCommitment(height, types.StateCommitment{Timestamp: time.Second}))

	_, err := env.module.HandleResponses(context.Background(), types.ResponseMessage{
		Responses: []types.Response{resp},
		Proof:     types.Proof{Height: height},
	})
	var notFound *ismperrors.RequestCommitmentNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestContextCancellationShortCircuits(t *testing.T) {
	env := newEnv(t, 0, 365*24*time.Hour, mockClient())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.module.UpdateConsensusClient(ctx, types.ConsensusMessage{ConsensusStateId: env.stateId})
	require.True(t, errors.Is(err, context.Canceled))
}
