package handlers

import (
	"context"

	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// Result is the outcome of a single Handle call: exactly one field is
// populated, matching the Kind of the Message that produced it.
type Result struct {
	Kind       types.MessageKind
	Consensus  *ConsensusUpdateResult
	FraudProof *FraudProofResult
	Request    *RequestResult
	Response   *ResponseResult
	Timeout    *TimeoutResult
}

// Handle is the single entry point every inbound Message is routed through
// (spec §2): it dispatches by Kind to the matching pipeline and returns a
// tagged Result. CreateConsensusClient is deliberately not reachable from
// here — spec §6 gives it its own entry point, handlers.CreateConsensusClient,
// and a Message carrying no populated variant is a programmer error, not a
// recoverable one, so it surfaces ismperrors.ErrCannotHandleMessage like any
// other malformed dispatch.
func (m *Module) Handle(ctx context.Context, msg types.Message) (*Result, error) {
	switch msg.Kind {
	case types.KindConsensus:
		if msg.Consensus == nil {
			return nil, ismperrors.ErrCannotHandleMessage
		}
		res, err := m.UpdateConsensusClient(ctx, *msg.Consensus)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: msg.Kind, Consensus: res}, nil

	case types.KindFraudProof:
		if msg.FraudProof == nil {
			return nil, ismperrors.ErrCannotHandleMessage
		}
		res, err := m.HandleFraudProof(ctx, *msg.FraudProof)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: msg.Kind, FraudProof: res}, nil

	case types.KindRequest:
		if msg.Request == nil {
			return nil, ismperrors.ErrCannotHandleMessage
		}
		res, err := m.HandleRequests(ctx, *msg.Request)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: msg.Kind, Request: res}, nil

	case types.KindResponse:
		if msg.Response == nil {
			return nil, ismperrors.ErrCannotHandleMessage
		}
		res, err := m.HandleResponses(ctx, *msg.Response)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: msg.Kind, Response: res}, nil

	case types.KindTimeout:
		if msg.Timeout == nil {
			return nil, ismperrors.ErrCannotHandleMessage
		}
		res, err := m.HandleTimeouts(ctx, *msg.Timeout)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: msg.Kind, Timeout: res}, nil

	default:
		return nil, ismperrors.ErrCannotHandleMessage
	}
}
