package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/server/middleware"
)

type CreateFirmInput struct {
	Body struct {
		Name            string `json:"name" minLength:"1" maxLength:"255" doc:"Firm name"`
		Slug            string `json:"slug" minLength:"1" maxLength:"63" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-safe slug (lowercase alphanumeric with hyphens)"`
		DefaultCategory string `json:"default_category,omitempty" enum:"personal_injury,family_law,employment,general" doc:"Category for sessions started without a hint"`
		SlackChannel    string `json:"slack_channel,omitempty" maxLength:"255" doc:"Channel for handoff notifications"`
	}
}

type CreateFirmOutput struct {
	Body *domain.Firm
}

type GetFirmInput struct {
	ID uuid.UUID `path:"id" doc:"Firm ID"`
}

type GetFirmOutput struct {
	Body *domain.Firm
}

type UpdateFirmInput struct {
	ID   uuid.UUID `path:"id" doc:"Firm ID"`
	Body struct {
		Name            string  `json:"name,omitempty" maxLength:"255" doc:"Firm name"`
		DefaultCategory string  `json:"default_category,omitempty" enum:"personal_injury,family_law,employment,general" doc:"Category for sessions started without a hint"`
		SlackChannel    *string `json:"slack_channel,omitempty" maxLength:"255" doc:"Channel for handoff notifications (empty string clears)"`
	}
}

type UpdateFirmOutput struct {
	Body *domain.Firm
}

type ListFirmsOutput struct {
	Body []*domain.Firm
}

func RegisterFirmRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-firm",
		Method:      http.MethodPost,
		Path:        "/firms",
		Summary:     "Create a new firm",
		Tags:        []string{"Firms"},
	}, func(ctx context.Context, input *CreateFirmInput) (*CreateFirmOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != middleware.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}

		category := domain.MatterCategory(input.Body.DefaultCategory)
		if category == "" {
			category = domain.MatterGeneral
		}

		now := time.Now()
		f := &domain.Firm{
			ID:              uuid.New(),
			Name:            input.Body.Name,
			Slug:            input.Body.Slug,
			DefaultCategory: category,
			SlackChannel:    input.Body.SlackChannel,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := store.Firms().Create(ctx, f); err != nil {
			return nil, huma.Error500InternalServerError("failed to create firm", err)
		}

		return &CreateFirmOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-firm",
		Method:      http.MethodGet,
		Path:        "/firms/{id}",
		Summary:     "Get a firm",
		Tags:        []string{"Firms"},
	}, func(ctx context.Context, input *GetFirmInput) (*GetFirmOutput, error) {
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok || firmID != input.ID {
			return nil, huma.Error403Forbidden("firm mismatch")
		}

		f, err := store.Firms().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("firm not found")
			}
			return nil, huma.Error500InternalServerError("failed to get firm", err)
		}

		return &GetFirmOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-firm",
		Method:      http.MethodPatch,
		Path:        "/firms/{id}",
		Summary:     "Update firm settings",
		Tags:        []string{"Firms"},
	}, func(ctx context.Context, input *UpdateFirmInput) (*UpdateFirmOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != middleware.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}
		firmID, ok := middleware.FirmIDFromContext(ctx)
		if !ok || firmID != input.ID {
			return nil, huma.Error403Forbidden("firm mismatch")
		}

		f, err := store.Firms().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("firm not found")
			}
			return nil, huma.Error500InternalServerError("failed to get firm", err)
		}

		if input.Body.Name != "" {
			f.Name = input.Body.Name
		}
		if input.Body.DefaultCategory != "" {
			f.DefaultCategory = domain.MatterCategory(input.Body.DefaultCategory)
		}
		if input.Body.SlackChannel != nil {
			f.SlackChannel = *input.Body.SlackChannel
		}
		f.UpdatedAt = time.Now()

		if err := store.Firms().Update(ctx, f); err != nil {
			return nil, huma.Error500InternalServerError("failed to update firm", err)
		}

		return &UpdateFirmOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-firms",
		Method:      http.MethodGet,
		Path:        "/firms",
		Summary:     "List all firms",
		Tags:        []string{"Firms"},
	}, func(ctx context.Context, _ *struct{}) (*ListFirmsOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != middleware.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}

		firms, err := store.Firms().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list firms", err)
		}

		return &ListFirmsOutput{Body: firms}, nil
	})
}
