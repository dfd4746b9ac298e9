// Package router defines the capability that delivers verified requests,
// responses and timeouts to the modules that own them. A Router is the
// handler's only way to reach application code: it never calls a module
// directly.
package router

import (
	"fmt"

	"github.com/polytope-labs/go-ismp/types"
)

// DispatchError is the structured failure a Router raises when it refuses to
// dispatch or commit a request/response — most commonly a duplicate
// outbound commitment (spec §4.2, §8 invariant 2). Handlers store it
// unchanged as the failing item's outcome error rather than reinterpreting
// it as one of ismperrors' kinds.
type DispatchError struct {
	Nonce  uint64
	Source types.StateMachine
	Dest   types.StateMachine
	Reason string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("router: dispatch failed for nonce=%d source=%s dest=%s: %s", e.Nonce, e.Source, e.Dest, e.Reason)
}

// IncomingRequestResponse is what a module returns after being handed a
// verified request: the reply bytes (if any), and whether the module
// rejected the request. handlers.HandleRequests discards this value: it
// neither commits Response outbound nor acts on IsError or Error.
type IncomingRequestResponse struct {
	Response []byte
	IsError  bool
	Error    string
}

// Router is implemented once per chain integration, alongside a Host. Its
// methods are called only after a request/response/timeout has already
// passed proof verification; Router implementations are not expected to
// re-verify anything, only to deliver.
type Router interface {
	// Dispatch hands a verified incoming request to the module addressed
	// by its To field (Post) or From field (Get) and returns the module's
	// immediate reply, if any. handlers.HandleRequests calls it for Post
	// requests only; Get requests are answered through GetRequestValues
	// and WriteResponse instead.
	Dispatch(request types.Request) (IncomingRequestResponse, error)

	// GetRequestValues resolves a Get request's Keys against local
	// storage at the requested Height, returning one GetResponseItem per
	// key (Value is nil for keys that do not exist).
	GetRequestValues(request types.Get) ([]types.GetResponseItem, error)

	// WriteResponse hands a verified incoming Response to the module
	// that issued the original outbound request.
	WriteResponse(response types.Response) error

	// DispatchTimeout notifies the module that issued request that it
	// timed out and will never receive a response.
	DispatchTimeout(request types.Request) error
}
