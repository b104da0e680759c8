package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/server/middleware"
)

// Staff session review surface. Firm scoping comes from the JWT via
// middleware, never from the request body.

type ListSessionsInput struct {
	ReadyOnly bool `query:"ready_only" doc:"Only sessions flagged ready for attorney handoff"`
	Limit     int  `query:"limit" minimum:"1" maximum:"200" doc:"Page size (default 50)"`
	Offset    int  `query:"offset" minimum:"0" doc:"Page offset"`
}

type ListSessionsOutput struct {
	Body []*domain.IntakeSession
}

type GetSessionInput struct {
	ID uuid.UUID `path:"id" doc:"Session ID"`
}

type GetSessionOutput struct {
	Body *domain.IntakeSession
}

type OverrideConflictInput struct {
	ID   uuid.UUID `path:"id" doc:"Session ID"`
	Body struct {
		Reason string `json:"reason" minLength:"1" maxLength:"2000" doc:"Why intake may proceed despite the detected conflict"`
	}
}

type OverrideConflictOutput struct {
	Body *domain.IntakeSession
}

type CloseSessionInput struct {
	ID uuid.UUID `path:"id" doc:"Session ID"`
}

type CloseSessionOutput struct {
	Body *domain.IntakeSession
}

type ListSessionAuditInput struct {
	ID uuid.UUID `path:"id" doc:"Session ID"`
}

type ListSessionAuditOutput struct {
	Body []*domain.AuditEntry
}

func RegisterSessionRoutes(api huma.API, store DataStore, machine IntakeMachine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List intake sessions for the firm",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}

		sessions, err := store.Sessions().ListByFirm(ctx, firmID, input.ReadyOnly, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sessions", err)
		}

		return &ListSessionsOutput{Body: sessions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Get one intake session with its transcript",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}

		s, err := machine.GetSession(ctx, firmID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("session not found")
			}
			return nil, huma.Error500InternalServerError("failed to get session", err)
		}

		return &GetSessionOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "override-session-conflict",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/override-conflict",
		Summary:     "Record a staff override for a detected conflict",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *OverrideConflictInput) (*OverrideConflictOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}
		actorID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		// Scope check before mutating: the machine addresses sessions by ID
		// alone, so confirm the session belongs to the caller's firm.
		if _, err := machine.GetSession(ctx, firmID, input.ID); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("session not found")
			}
			return nil, huma.Error500InternalServerError("failed to get session", err)
		}

		s, err := machine.OverrideConflict(ctx, input.ID, actorID, input.Body.Reason)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, domain.ErrNoConflictToOverride):
				return nil, huma.Error409Conflict("session has no detected conflict to override")
			case errors.Is(err, domain.ErrSessionClosed):
				return nil, huma.Error410Gone("session is closed")
			}
			return nil, huma.Error500InternalServerError("failed to override conflict", err)
		}

		return &OverrideConflictOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/close",
		Summary:     "Close an intake session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *CloseSessionInput) (*CloseSessionOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}
		actorID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		s, err := machine.CloseSession(ctx, firmID, input.ID, actorID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, domain.ErrSessionClosed):
				return nil, huma.Error409Conflict("session is already closed")
			}
			return nil, huma.Error500InternalServerError("failed to close session", err)
		}

		return &CloseSessionOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-audit",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/audit",
		Summary:     "List audit events for a session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ListSessionAuditInput) (*ListSessionAuditOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}

		entries, err := store.Audit().ListByResource(ctx, firmID, "session", input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit events", err)
		}

		return &ListSessionAuditOutput{Body: entries}, nil
	})
}
