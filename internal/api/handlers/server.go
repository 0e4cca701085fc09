// Package handlers implements the HTTP boundary: one file per command
// family, translating JSON requests into typed domain.Command values,
// authorizing via internal/authz, then calling internal/lifecycle (or one
// of its thin wrapper packages), and finally shaping the result as JSON.
package handlers

import (
	"github.com/fredsystems/zabbid/internal/authn"
	"github.com/fredsystems/zabbid/internal/broadcast"
	"github.com/fredsystems/zabbid/internal/config"
	"github.com/fredsystems/zabbid/internal/lifecycle"
	"github.com/fredsystems/zabbid/internal/persistence"
	"github.com/fredsystems/zabbid/internal/pkg/worker"
)

// Server holds every dependency a handler method needs. It carries no
// per-request state; one Server is shared across all goroutines serving
// HTTP requests.
type Server struct {
	Store    *persistence.Store
	Engine   *lifecycle.Engine
	Authn    *authn.Service
	Hub      *broadcast.Hub
	CSVPool  *worker.Pool
	Bidding  config.BiddingConfig
}

// ServerDeps holds all dependencies for constructing a Server.
type ServerDeps struct {
	Store   *persistence.Store
	Engine  *lifecycle.Engine
	Authn   *authn.Service
	Hub     *broadcast.Hub
	CSVPool *worker.Pool
	Bidding config.BiddingConfig
}

// NewServer builds a Server from deps.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		Store:   deps.Store,
		Engine:  deps.Engine,
		Authn:   deps.Authn,
		Hub:     deps.Hub,
		CSVPool: deps.CSVPool,
		Bidding: deps.Bidding,
	}
}
