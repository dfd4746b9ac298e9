// Package handlers implements the message-handling state machine: the
// consensus update pipeline, the request/response/timeout verification
// pipelines, and the admin bootstrap message. Every exported entry point is
// a method on Module, which binds a host.Host, a router.Router and a
// *consensus.Registry; handlers store nothing across calls, per the
// single-threaded transactional model the host is expected to run these
// under.
package handlers

import (
	"github.com/rs/zerolog"

	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/host"
	"github.com/polytope-labs/go-ismp/router"
)

// Module is the bound set of capabilities a node wires up once at startup
// and then passes to every Handle call. It carries no mutable state of its
// own beyond the logger.
type Module struct {
	Host     host.Host
	Router   router.Router
	Registry *consensus.Registry
	Log      zerolog.Logger
}

// New builds a Module. log is expected to already carry any
// node-identifying fields (cmd/ismpd serve adds an "app" field); handlers only add
// per-call fields (message kind, nonce, client id, ...).
func New(h host.Host, r router.Router, registry *consensus.Registry, log zerolog.Logger) *Module {
	return &Module{Host: h, Router: r, Registry: registry, Log: log.With().Str("module", "ismp-handlers").Logger()}
}
