package slack

import (
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/majiny/eksops/internal/domain/port/outbound"
)

// These tests verify block construction only. No Slack API calls are made.

func sectionText(t *testing.T, block slackapi.Block) string {
	t.Helper()
	section, ok := block.(*slackapi.SectionBlock)
	if !ok {
		t.Fatalf("expected section block, got %T", block)
	}
	return section.Text.Text
}

func TestBuildOutcomeBlocks_Success(t *testing.T) {
	blocks := BuildOutcomeBlocks(outbound.ActionOutcome{
		Action:     "restart",
		Namespace:  "prod",
		Deployment: "django-app",
		Status:     "ok",
		Output:     "deployment.apps/django-app restarted",
		Duration:   1200 * time.Millisecond,
	})
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	head := sectionText(t, blocks[0])
	if !strings.Contains(head, ":white_check_mark:") {
		t.Errorf("missing success emoji: %q", head)
	}
	if !strings.Contains(head, "prod/django-app") {
		t.Errorf("missing target: %q", head)
	}
	if strings.Contains(head, "Error:") {
		t.Errorf("unexpected error line on success: %q", head)
	}

	body := sectionText(t, blocks[1])
	if !strings.Contains(body, "deployment.apps/django-app restarted") {
		t.Errorf("missing output: %q", body)
	}
}

func TestBuildOutcomeBlocks_FailureIncludesErrorKind(t *testing.T) {
	blocks := BuildOutcomeBlocks(outbound.ActionOutcome{
		Action:    "apply",
		Namespace: "prod",
		Status:    "error",
		ErrorKind: "ExecutionTimeout",
		Duration:  30 * time.Second,
	})
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block without output, got %d", len(blocks))
	}

	head := sectionText(t, blocks[0])
	if !strings.Contains(head, ":x:") {
		t.Errorf("missing failure emoji: %q", head)
	}
	if !strings.Contains(head, "ExecutionTimeout") {
		t.Errorf("missing error kind: %q", head)
	}
	if !strings.Contains(head, "on `prod`") {
		t.Errorf("expected namespace-only target: %q", head)
	}
}

func TestBuildOutcomeBlocks_TruncatesLongOutput(t *testing.T) {
	blocks := BuildOutcomeBlocks(outbound.ActionOutcome{
		Action:     "restart",
		Namespace:  "prod",
		Deployment: "web",
		Status:     "ok",
		Output:     strings.Repeat("x", 5000),
	})

	body := sectionText(t, blocks[1])
	if len(body) > 3000 {
		t.Errorf("output block too long: %d chars", len(body))
	}
	if !strings.Contains(body, "(truncated)") {
		t.Error("expected truncation marker")
	}
}

func TestFallbackText(t *testing.T) {
	got := fallbackText(outbound.ActionOutcome{
		Action: "restart", Namespace: "prod", Deployment: "web", Status: "ok",
	})
	want := "[ok] restart prod/web"
	if got != want {
		t.Errorf("fallbackText = %q, want %q", got, want)
	}
}
