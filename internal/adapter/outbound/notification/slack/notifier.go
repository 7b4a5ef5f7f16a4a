package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/majiny/eksops/internal/domain/port/outbound"
)

// maxOutputChars bounds command output in Slack messages. Slack rejects
// text blocks above 3000 characters, so leave room for the fence markers.
const maxOutputChars = 2800

// Config holds Slack notifier configuration.
type Config struct {
	BotToken string
	Channel  string
}

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client *slackapi.Client
	config Config
}

// NewNotifier creates a new Slack Notifier.
func NewNotifier(cfg Config) *Notifier {
	return &Notifier{
		client: slackapi.New(cfg.BotToken),
		config: cfg,
	}
}

var _ outbound.Notifier = (*Notifier)(nil)

// NotifyResult posts an outcome card for a finished mutating action.
func (n *Notifier) NotifyResult(ctx context.Context, outcome outbound.ActionOutcome) error {
	blocks := BuildOutcomeBlocks(outcome)

	_, _, err := n.client.PostMessageContext(ctx, n.config.Channel,
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(fallbackText(outcome), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyResult: %w", err)
	}
	return nil
}

// BuildOutcomeBlocks renders an ActionOutcome as Block Kit blocks.
func BuildOutcomeBlocks(outcome outbound.ActionOutcome) []slackapi.Block {
	target := outcome.Namespace
	if outcome.Deployment != "" {
		target = fmt.Sprintf("%s/%s", outcome.Namespace, outcome.Deployment)
	}

	lines := []string{
		fmt.Sprintf("%s *%s* on `%s`", statusEmoji(outcome.Status), outcome.Action, target),
		fmt.Sprintf("Status: %s | Duration: %s", outcome.Status, outcome.Duration.Round(time.Millisecond)),
	}
	if outcome.ErrorKind != "" {
		lines = append(lines, fmt.Sprintf("Error: `%s`", outcome.ErrorKind))
	}

	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil, nil,
		),
	}

	if out := truncateOutput(outcome.Output); out != "" {
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("```\n%s\n```", out), false, false),
			nil, nil,
		))
	}
	return blocks
}

// fallbackText is the plain-text summary for clients without Block Kit.
func fallbackText(outcome outbound.ActionOutcome) string {
	return fmt.Sprintf("[%s] %s %s/%s", outcome.Status, outcome.Action, outcome.Namespace, outcome.Deployment)
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutputChars {
		return s
	}
	return s[:maxOutputChars] + "\n... (truncated)"
}

// statusEmoji maps an invocation status to an emoji.
func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case "ok":
		return ":white_check_mark:"
	case "error":
		return ":x:"
	default:
		return ":arrow_right:"
	}
}
