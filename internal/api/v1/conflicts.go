package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/server/middleware"
)

type CreateConflictEntryInput struct {
	Body struct {
		Name  string `json:"name" minLength:"1" maxLength:"500" doc:"Party name"`
		Kind  string `json:"kind" enum:"client,adverse_party,related_entity" doc:"Relationship to the firm"`
		Notes string `json:"notes,omitempty" maxLength:"2000" doc:"Free-form notes"`
	}
}

type CreateConflictEntryOutput struct {
	Body *domain.ConflictEntry
}

type ListConflictEntriesInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"500" doc:"Page size (default 100)"`
	Offset int `query:"offset" minimum:"0" doc:"Page offset"`
}

type ListConflictEntriesOutput struct {
	Body []*domain.ConflictEntry
}

func RegisterConflictRoutes(api huma.API, entries ConflictEntryStore, index ConflictIndex) {
	huma.Register(api, huma.Operation{
		OperationID: "create-conflict-entry",
		Method:      http.MethodPost,
		Path:        "/conflicts",
		Summary:     "Add a party to the firm's conflict list",
		Tags:        []string{"Conflicts"},
	}, func(ctx context.Context, input *CreateConflictEntryInput) (*CreateConflictEntryOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}

		e := &domain.ConflictEntry{
			ID:        uuid.New(),
			FirmID:    firmID,
			Name:      input.Body.Name,
			Kind:      input.Body.Kind,
			Notes:     input.Body.Notes,
			CreatedAt: time.Now(),
		}

		if err := entries.Create(ctx, e); err != nil {
			return nil, huma.Error500InternalServerError("failed to create conflict entry", err)
		}

		// The durable row is the source of truth. If indexing fails the
		// entry is picked up on the next index rebuild.
		if err := index.Add(ctx, e); err != nil {
			log.Error().Err(err).
				Str("firm_id", firmID.String()).
				Str("entry_id", e.ID.String()).
				Msg("conflict entry stored but not indexed")
		}

		return &CreateConflictEntryOutput{Body: e}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-conflict-entries",
		Method:      http.MethodGet,
		Path:        "/conflicts",
		Summary:     "List the firm's conflict list",
		Tags:        []string{"Conflicts"},
	}, func(ctx context.Context, input *ListConflictEntriesInput) (*ListConflictEntriesOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing firm context")
		}

		list, err := entries.ListByFirm(ctx, firmID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list conflict entries", err)
		}

		return &ListConflictEntriesOutput{Body: list}, nil
	})
}
