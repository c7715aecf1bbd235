package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartTrace(context.Background(), "answer", "req-1")
	_, child := Start(ctx, "file_rank")
	child.Set("files", 3)
	child.End()
	root.End()

	children := root.Children()
	if len(children) != 1 || children[0].Name != "file_rank" {
		t.Fatalf("children = %+v", children)
	}
	if children[0].TraceID != "req-1" {
		t.Errorf("child trace id = %q, want req-1", children[0].TraceID)
	}
	if v, ok := children[0].Attr("files"); !ok || v != 3 {
		t.Errorf("attr files = %v, %v", v, ok)
	}
}

func TestStartWithoutParent(t *testing.T) {
	ctx, s := Start(context.Background(), "orphan")
	if s.TraceID != "" {
		t.Errorf("trace id = %q, want empty", s.TraceID)
	}
	if FromContext(ctx) != s {
		t.Error("span not stored in context")
	}
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartTrace(context.Background(), "answer", "req-2")
	_, a := Start(ctx, "file_rank")
	a.End()
	_, b := Start(ctx, "sentence_rank")
	b.End()
	root.End()
	root.Log(ctx, logger)

	out := buf.String()
	if got := strings.Count(out, "msg=span"); got != 3 {
		t.Fatalf("logged %d spans, want 3:\n%s", got, out)
	}
	if !strings.Contains(out, "span=sentence_rank depth=1") {
		t.Errorf("missing child record:\n%s", out)
	}
}

func TestLogSkippedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, root := StartTrace(context.Background(), "answer", "req-3")
	root.End()
	root.Log(ctx, logger)
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
