package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/casefront/engage/internal/api/v1"
	"github.com/casefront/engage/internal/api/ws"
)

func registerAuthRoutes(api huma.API, deps Deps) {
	v1.RegisterAuthRoutes(api, deps.Store, deps.Auth)
}

func registerIntakeRoutes(api huma.API, deps Deps) {
	v1.RegisterIntakeRoutes(api, deps.Store, deps.Orchestrator, deps.Machine, deps.Verifier)
}

func registerStaffRoutes(api huma.API, deps Deps) {
	v1.RegisterFirmRoutes(api, deps.Store)
	v1.RegisterSessionRoutes(api, deps.Store, deps.Machine)
	v1.RegisterConflictRoutes(api, deps.Store.ConflictEntries(), deps.ConflictIndex)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/sessions/{sessionID}", hub.ServeSession)
	r.Get("/firm", hub.ServeFirm)
}
