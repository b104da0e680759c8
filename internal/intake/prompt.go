package intake

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/llm"
)

const systemPromptTemplate = `You are a client-intake assistant for a law firm. You gather the
information the firm needs before an attorney reviews the matter. You are
not an attorney and you never give legal advice; say so if asked.

Be warm, concise, and professional. Ask for at most one or two things per
reply. The matter category is %q.

Information still needed, in order of importance:
%s

What is already known about the client:
%s

After your reply, append a machine-readable block of anything you learned
this turn, in the exact form:
<hints>{"name":"...","emails":["..."],"phones":["..."],"organization":"...","case_description":"...","goals":[{"goal_id":"...","state":"completed","evidence":"..."}]}</hints>
Include only fields the user actually stated. Omit the block entirely if
nothing new was learned.`

// PromptBuilder assembles the completion context for one turn: system
// instructions, goal state, identity snapshot, and a token-budgeted
// window of recent history.
type PromptBuilder struct {
	encoder      *tiktoken.Tiktoken
	historyLimit int
	maxTokens    int
}

// NewPromptBuilder creates a builder with the given history token budget.
// The tokenizer is loaded once; if unavailable (offline first run without
// the embedded BPE), a character heuristic stands in.
func NewPromptBuilder(historyTokenBudget, maxReplyTokens int) *PromptBuilder {
	if historyTokenBudget <= 0 {
		historyTokenBudget = 3000
	}
	if maxReplyTokens <= 0 {
		maxReplyTokens = 600
	}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Warn().Err(err).Msg("intake.PromptBuilder: tokenizer unavailable, using character heuristic")
		enc = nil
	}

	return &PromptBuilder{encoder: enc, historyLimit: historyTokenBudget, maxTokens: maxReplyTokens}
}

// Build produces the completion request for the session's next turn.
func (b *PromptBuilder) Build(s *domain.IntakeSession) llm.CompletionRequest {
	system := fmt.Sprintf(systemPromptTemplate, s.Category, b.goalSummary(s), b.identitySummary(s))

	return llm.CompletionRequest{
		System:      system,
		Messages:    b.historyWindow(s.Messages),
		MaxTokens:   b.maxTokens,
		Temperature: 0.4,
	}
}

// historyWindow walks messages newest-first, keeping as many whole turns
// as fit the token budget, then restores chronological order.
func (b *PromptBuilder) historyWindow(messages []domain.Message) []llm.Message {
	var (
		window []llm.Message
		used   int
	)

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		cost := b.countTokens(m.Content)
		if used+cost > b.historyLimit && len(window) > 0 {
			break
		}
		used += cost

		role := "user"
		if m.Role == domain.MessageRoleAgent {
			role = "assistant"
		}
		window = append(window, llm.Message{Role: role, Content: m.Content})
	}

	// Reverse into chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	return window
}

func (b *PromptBuilder) countTokens(text string) int {
	if b.encoder != nil {
		return len(b.encoder.Encode(text, nil, nil))
	}
	// Rough heuristic: ~4 characters per token.
	return len(text)/4 + 1
}

func (b *PromptBuilder) goalSummary(s *domain.IntakeSession) string {
	var sb strings.Builder
	for _, g := range s.Goals {
		if g.State == domain.GoalStateCompleted {
			continue
		}
		fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", g.Priority, g.State, g.ID, g.PromptHint)
	}
	if sb.Len() == 0 {
		return "- nothing; all goals are complete\n"
	}
	return sb.String()
}

func (b *PromptBuilder) identitySummary(s *domain.IntakeSession) string {
	var sb strings.Builder
	id := s.Identity
	if id.Name != "" {
		fmt.Fprintf(&sb, "- name: %s\n", id.Name)
	}
	if len(id.Emails) > 0 {
		fmt.Fprintf(&sb, "- emails: %s\n", strings.Join(id.Emails, ", "))
	}
	if len(id.Phones) > 0 {
		fmt.Fprintf(&sb, "- phones: %s\n", strings.Join(id.Phones, ", "))
	}
	if id.Organization != "" {
		fmt.Fprintf(&sb, "- organization: %s\n", id.Organization)
	}
	if id.CaseDescription != "" {
		fmt.Fprintf(&sb, "- matter description: %s\n", id.CaseDescription)
	}
	if sb.Len() == 0 {
		return "- nothing yet\n"
	}
	return sb.String()
}
