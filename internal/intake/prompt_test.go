package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefront/engage/internal/domain"
)

// heuristicBuilder skips the tokenizer so token costs are deterministic:
// len(content)/4 + 1.
func heuristicBuilder(historyLimit int) *PromptBuilder {
	return &PromptBuilder{historyLimit: historyLimit, maxTokens: 600}
}

func TestPromptBuilder_Build(t *testing.T) {
	t.Parallel()

	b := heuristicBuilder(3000)
	s := &domain.IntakeSession{
		Category: domain.MatterPersonalInjury,
		Identity: domain.ClientIdentity{
			Name:   "Ava Client",
			Emails: []string{"ava@example.test"},
		},
		Goals: []domain.Goal{
			{ID: "identification", Priority: domain.GoalPriorityCritical, State: domain.GoalStateCompleted, Evidence: "ava@example.test"},
			{ID: "legal_context", Priority: domain.GoalPriorityRequired, State: domain.GoalStatePending, PromptHint: "what happened"},
		},
		Messages: []domain.Message{
			{Role: domain.MessageRoleUser, Content: "Hello"},
			{Role: domain.MessageRoleAgent, Content: "Hi, how can I help?"},
		},
	}

	req := b.Build(s)

	assert.Contains(t, req.System, `"personal_injury"`)
	assert.Contains(t, req.System, "legal_context: what happened")
	assert.NotContains(t, req.System, "identification:", "completed goals are omitted")
	assert.Contains(t, req.System, "- name: Ava Client")
	assert.Contains(t, req.System, "- emails: ava@example.test")
	assert.Equal(t, 600, req.MaxTokens)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
}

func TestPromptBuilder_EmptySession(t *testing.T) {
	t.Parallel()

	b := heuristicBuilder(3000)
	req := b.Build(&domain.IntakeSession{Category: domain.MatterGeneral})

	assert.Contains(t, req.System, "- nothing yet")
	assert.Contains(t, req.System, "all goals are complete")
	assert.Empty(t, req.Messages)
}

func TestHistoryWindow_BudgetKeepsNewestTurns(t *testing.T) {
	t.Parallel()

	// Each message costs len/4+1 tokens; 100 chars => 26 tokens.
	long := strings.Repeat("x", 100)
	msgs := []domain.Message{
		{Role: domain.MessageRoleUser, Content: "oldest " + long},
		{Role: domain.MessageRoleAgent, Content: "middle " + long},
		{Role: domain.MessageRoleUser, Content: "newest " + long},
	}

	// Budget for roughly two messages.
	b := heuristicBuilder(60)

	window := b.historyWindow(msgs)
	require.Len(t, window, 2)
	assert.True(t, strings.HasPrefix(window[0].Content, "middle"))
	assert.True(t, strings.HasPrefix(window[1].Content, "newest"))
}

func TestHistoryWindow_AlwaysKeepsAtLeastOneMessage(t *testing.T) {
	t.Parallel()

	b := heuristicBuilder(1)
	msgs := []domain.Message{
		{Role: domain.MessageRoleUser, Content: strings.Repeat("long message ", 50)},
	}

	window := b.historyWindow(msgs)
	assert.Len(t, window, 1, "an over-budget newest message is still included")
}

func TestNewPromptBuilder_Defaults(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(0, -1)
	assert.Equal(t, 3000, b.historyLimit)
	assert.Equal(t, 600, b.maxTokens)
}
