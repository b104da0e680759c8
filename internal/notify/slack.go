// Package notify tells firm staff when an intake session is ready for
// handoff.
package notify

import (
	"context"
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/casefront/engage/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by the notifier,
// so tests run without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier posts a handoff summary to the firm's configured Slack
// channel. Firms without a channel are skipped silently.
type SlackNotifier struct {
	api   SlackAPI
	firms domain.FirmRepository
}

func NewSlackNotifier(api SlackAPI, firms domain.FirmRepository) *SlackNotifier {
	return &SlackNotifier{api: api, firms: firms}
}

// NotifyHandoff posts the ready-for-review message.
func (n *SlackNotifier) NotifyHandoff(ctx context.Context, s *domain.IntakeSession) error {
	firm, err := n.firms.GetByID(ctx, s.FirmID)
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.NotifyHandoff: firm lookup: %w", err)
	}
	if firm.SlackChannel == "" {
		return nil
	}

	_, _, err = n.api.PostMessageContext(ctx, firm.SlackChannel,
		slacklib.MsgOptionText(buildHandoffText(s), false))
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.NotifyHandoff: post: %w", err)
	}

	return nil
}

func buildHandoffText(s *domain.IntakeSession) string {
	var sb strings.Builder

	sb.WriteString(":inbox_tray: New intake ready for review\n")
	if s.Identity.Name != "" {
		fmt.Fprintf(&sb, "*Client:* %s\n", s.Identity.Name)
	}
	fmt.Fprintf(&sb, "*Matter:* %s\n", s.Category)
	fmt.Fprintf(&sb, "*Conflict check:* %s\n", s.Conflict.Status)

	completed := 0
	for _, g := range s.Goals {
		if g.State == domain.GoalStateCompleted {
			completed++
		}
	}
	fmt.Fprintf(&sb, "*Goals:* %d/%d complete\n", completed, len(s.Goals))
	fmt.Fprintf(&sb, "*Session:* %s", s.ID)

	return sb.String()
}
