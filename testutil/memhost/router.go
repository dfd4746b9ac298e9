package memhost

import (
	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/router"
	"github.com/polytope-labs/go-ismp/types"
)

// ModuleHandler is the callback a destination module registers to receive
// verified inbound requests/responses/timeouts, standing in for "module
// dispatch at the destination" (spec §1, explicitly out of the core's
// scope). Router.Dispatch/WriteResponse/DispatchTimeout call it only for
// traffic addressed to this host; outbound traffic never reaches it.
type ModuleHandler struct {
	OnRequest  func(types.Request) (router.IncomingRequestResponse, error)
	OnResponse func(types.Response) error
	OnTimeout  func(types.Request) error
}

// Router is the in-memory reference router.Router. It shares the Host it
// was built with, so outbound commitments it stores are visible to the
// same handlers.Module's Host calls (request_commitment lookups, deletes).
// Per spec §9, Router and Host are still two distinct capabilities from the
// handler's point of view — they simply happen to share one backing store
// in this reference implementation, the way a single chain's runtime
// naturally owns both.
type Router struct {
	host    *Host
	modules map[string]ModuleHandler
	storage map[string][]types.GetResponseItem
}

// NewRouter builds a Router backed by host. Register module handlers with
// RegisterModule before routing traffic to them.
func NewRouter(host *Host) *Router {
	return &Router{host: host, modules: make(map[string]ModuleHandler), storage: make(map[string][]types.GetResponseItem)}
}

// RegisterModule binds a ModuleHandler to the module address `to`
// (Post.To) or `from` (Get.From), keyed by the raw address bytes. Incoming
// traffic addressed to an unregistered module is delivered successfully
// with an empty reply, the same permissive default the teacher's mocks use.
func (r *Router) RegisterModule(address []byte, handler ModuleHandler) {
	r.modules[string(address)] = handler
}

// SeedStorage registers the key/value pairs a Get request addressed to
// `from` should resolve to, for GetRequestValues.
func (r *Router) SeedStorage(from []byte, items []types.GetResponseItem) {
	r.storage[string(from)] = items
}

func (r *Router) moduleFor(address []byte) (ModuleHandler, bool) {
	h, ok := r.modules[string(address)]
	return h, ok
}

// Dispatch delivers an inbound request (dest == host) to its module, or, for
// an outbound request (source == host), records its commitment with
// duplicate suppression (spec §4.2). A request that is neither addressed to
// nor originated by this host is rejected: the router has no storage
// obligation for traffic it is not a party to.
func (r *Router) Dispatch(request types.Request) (router.IncomingRequestResponse, error) {
	host := r.host.HostStateMachine()

	if request.SourceChain().Equal(host) {
		c := commitment.HashRequest(request)
		if _, err := r.host.RequestCommitment(c); err == nil {
			return router.IncomingRequestResponse{}, &router.DispatchError{
				Nonce: request.Nonce(), Source: request.SourceChain(), Dest: request.DestChain(),
				Reason: "outbound request commitment already exists",
			}
		}
		if err := r.host.StoreRequestCommitment(c); err != nil {
			return router.IncomingRequestResponse{}, err
		}
		return router.IncomingRequestResponse{}, nil
	}
	if !request.DestChain().Equal(host) {
		return router.IncomingRequestResponse{}, &router.DispatchError{
			Nonce: request.Nonce(), Source: request.SourceChain(), Dest: request.DestChain(),
			Reason: "request is neither addressed to nor sent from this host",
		}
	}

	to := request.Post
	var address []byte
	if to != nil {
		address = to.To
	} else {
		address = request.Get.From
	}
	if handler, ok := r.moduleFor(address); ok && handler.OnRequest != nil {
		return handler.OnRequest(request)
	}
	return router.IncomingRequestResponse{}, nil
}

// GetRequestValues resolves a Get request's keys against storage seeded via
// SeedStorage, returning a nil Value for any key not present.
func (r *Router) GetRequestValues(request types.Get) ([]types.GetResponseItem, error) {
	seeded := r.storage[string(request.From)]
	index := make(map[string][]byte, len(seeded))
	for _, item := range seeded {
		index[string(item.Key)] = item.Value
	}
	out := make([]types.GetResponseItem, len(request.Keys))
	for i, k := range request.Keys {
		out[i] = types.GetResponseItem{Key: k, Value: index[string(k)]}
	}
	return out, nil
}

// WriteResponse commits an outbound Post response with duplicate
// suppression when this host is the one answering the bound request (dest
// of the bound request == host — the chain that received the request and
// is replying to it is the one that must commit the response hash for a
// later membership proof), or else delivers an inbound response to the
// originating module. Get responses are never committed outbound (spec
// §4.6, §9) so they always fall through to delivery.
func (r *Router) WriteResponse(response types.Response) error {
	host := r.host.HostStateMachine()
	req := response.Request

	if req.IsPost() && req.DestChain().Equal(host) {
		c := commitment.HashResponse(response)
		if _, err := r.host.RequestCommitment(c); err == nil {
			return &router.DispatchError{Nonce: req.Nonce(), Source: req.SourceChain(), Dest: req.DestChain(), Reason: "outbound response commitment already exists"}
		}
		if err := r.host.StoreRequestCommitment(c); err != nil {
			return err
		}
		return nil
	}

	var address []byte
	if req.IsPost() {
		address = req.Post.From
	} else {
		address = req.Get.From
	}
	if handler, ok := r.moduleFor(address); ok && handler.OnResponse != nil {
		return handler.OnResponse(response)
	}
	return nil
}

// DispatchTimeout notifies the originating module that request timed out.
func (r *Router) DispatchTimeout(request types.Request) error {
	var address []byte
	if request.IsPost() {
		address = request.Post.From
	} else {
		address = request.Get.From
	}
	if handler, ok := r.moduleFor(address); ok && handler.OnTimeout != nil {
		return handler.OnTimeout(request)
	}
	return nil
}
