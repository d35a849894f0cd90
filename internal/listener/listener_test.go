package listener

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"invosheet/internal/config"
)

func TestRunLogsCycleErrors(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	cfg := config.Config{
		MailListenerProvider:    "bogus",
		MailListenerIntervalSec: 1,
	}
	svc := NewService(nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "cycle failed") {
		t.Fatalf("expected cycle failure log, got %q", out)
	}
	if !strings.Contains(out, "component=listener") {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "unsupported listener provider") {
		t.Fatalf("expected provider error in log, got %q", out)
	}
}
