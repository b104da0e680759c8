package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/intake"
)

// Public intake surface: no staff authentication. Sessions are addressed
// by unguessable UUIDv7 IDs pre-login and by resume tokens across
// browser sessions.

type StartSessionInput struct {
	Body struct {
		FirmSlug string `json:"firm_slug" minLength:"1" maxLength:"63" doc:"Firm slug"`
		Category string `json:"category,omitempty" enum:"personal_injury,family_law,employment,general" doc:"Matter category hint"`
	}
}

type StartSessionOutput struct {
	Body struct {
		Session     *domain.IntakeSession `json:"session"`
		ResumeToken string                `json:"resume_token"` //nolint:gosec // G117: returned once at creation
	}
}

type SendMessageInput struct {
	ID   uuid.UUID `path:"id" doc:"Session ID"`
	Body struct {
		Message string `json:"message" minLength:"1" maxLength:"8000" doc:"User message"`
	}
}

type SendMessageOutput struct {
	Body *intake.TurnResult
}

type ResumeSessionInput struct {
	Body struct {
		ResumeToken string `json:"resume_token" minLength:"1" doc:"Resume token issued at session creation"` //nolint:gosec // G117: resume credential DTO
	}
}

type ResumeSessionOutput struct {
	Body *domain.IntakeSession
}

type SecureSessionInput struct {
	ID   uuid.UUID `path:"id" doc:"Session ID"`
	Body struct {
		Assertion string `json:"assertion" minLength:"1" doc:"Identity-provider login assertion (JWT)"`
	}
}

type SecureSessionOutput struct {
	Body *domain.IntakeSession
}

func RegisterIntakeRoutes(api huma.API, store DataStore, orchestrator IntakeOrchestrator, machine IntakeMachine, verifier AssertionVerifier) {
	huma.Register(api, huma.Operation{
		OperationID: "start-intake-session",
		Method:      http.MethodPost,
		Path:        "/intake/sessions",
		Summary:     "Start a new intake conversation",
		Tags:        []string{"Intake"},
	}, func(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
		firm, err := store.Firms().GetBySlug(ctx, input.Body.FirmSlug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("firm not found")
			}
			return nil, huma.Error500InternalServerError("failed to look up firm", err)
		}

		category := domain.MatterCategory(input.Body.Category)
		if category == "" {
			category = firm.DefaultCategory
		}

		s, token, err := orchestrator.StartSession(ctx, firm.ID, category)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to start session", err)
		}

		out := &StartSessionOutput{}
		out.Body.Session = s
		out.Body.ResumeToken = token
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-intake-message",
		Method:      http.MethodPost,
		Path:        "/intake/sessions/{id}/messages",
		Summary:     "Send a message and get the agent's reply",
		Tags:        []string{"Intake"},
	}, func(ctx context.Context, input *SendMessageInput) (*SendMessageOutput, error) {
		result, err := orchestrator.HandleTurn(ctx, input.ID, input.Body.Message)
		if err != nil {
			switch {
			case errors.Is(err, intake.ErrEmptyMessage):
				return nil, huma.Error400BadRequest("message must not be empty")
			case errors.Is(err, domain.ErrSessionNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, domain.ErrSessionClosed):
				return nil, huma.Error410Gone("session is closed")
			}
			return nil, huma.Error500InternalServerError("failed to process message", err)
		}

		return &SendMessageOutput{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resume-intake-session",
		Method:      http.MethodPost,
		Path:        "/intake/resume",
		Summary:     "Resume a pre-login session with its resume token",
		Tags:        []string{"Intake"},
	}, func(ctx context.Context, input *ResumeSessionInput) (*ResumeSessionOutput, error) {
		s, err := machine.ResumeByToken(ctx, input.Body.ResumeToken)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidResumeToken) {
				return nil, huma.Error401Unauthorized("invalid or expired resume token")
			}
			return nil, huma.Error500InternalServerError("failed to resume session", err)
		}

		return &ResumeSessionOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "secure-intake-session",
		Method:      http.MethodPost,
		Path:        "/intake/sessions/{id}/secure",
		Summary:     "Upgrade a session to secured after end-user login",
		Tags:        []string{"Intake"},
	}, func(ctx context.Context, input *SecureSessionInput) (*SecureSessionOutput, error) {
		verified, err := verifier.Verify(input.Body.Assertion)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid login assertion")
		}

		s, err := machine.Secure(ctx, input.ID, *verified)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, domain.ErrAlreadySecured):
				return nil, huma.Error409Conflict("session is already secured")
			case errors.Is(err, domain.ErrIdentityMismatch):
				return nil, huma.Error403Forbidden("login identity does not match this session")
			}
			return nil, huma.Error500InternalServerError("failed to secure session", err)
		}

		return &SecureSessionOutput{Body: s}, nil
	})
}
