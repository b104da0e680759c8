// Package llm provides the AI text-completion client used by the intake
// orchestrator, plus parsing of the model's structured identity hints.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrCompletionFailed is returned when the completion backend responds
// with a non-OK status or an empty choice.
var ErrCompletionFailed = errors.New("llm: completion failed")

// Message is one chat turn sent to the completion API.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a fully built prompt: system instructions plus the
// windowed conversation history.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries the raw model output. The reply text and any
// structured hints are separated by ParseHints.
type CompletionResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Completer is the text-completion port. Implementations must return
// within the context deadline or report failure; retries are the
// orchestrator's responsibility.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// GoalSuggestion is a model-proposed goal completion. Suggestions are
// advisory only: the goal assessor validates them against its own rules
// and discards any it cannot independently confirm.
type GoalSuggestion struct {
	GoalID   string `json:"goal_id"`
	State    string `json:"state"`
	Evidence string `json:"evidence,omitempty"`
}

// IdentityHints is the structured block the model may append to a reply.
type IdentityHints struct {
	Name            string           `json:"name,omitempty"`
	Organization    string           `json:"organization,omitempty"`
	CaseDescription string           `json:"case_description,omitempty"`
	Emails          []string         `json:"emails,omitempty"`
	Phones          []string         `json:"phones,omitempty"`
	Goals           []GoalSuggestion `json:"goals,omitempty"`
}

const (
	hintsOpen  = "<hints>"
	hintsClose = "</hints>"
)

// ParseHints splits a model reply into the user-visible text and the
// structured hint block, if any. Models emit sloppy JSON under pressure,
// so the block goes through jsonrepair before unmarshalling; anything
// still unparseable degrades to "no hints extracted", never an error.
func ParseHints(content string) (reply string, hints *IdentityHints) {
	start := strings.Index(content, hintsOpen)
	if start < 0 {
		return strings.TrimSpace(content), nil
	}

	end := strings.Index(content[start:], hintsClose)
	if end < 0 {
		// Unterminated block: drop it from the visible reply.
		return strings.TrimSpace(content[:start]), nil
	}
	end += start

	raw := content[start+len(hintsOpen) : end]
	reply = strings.TrimSpace(content[:start] + content[end+len(hintsClose):])

	var parsed IdentityHints
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return reply, nil
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return reply, nil
		}
	}

	return reply, &parsed
}
