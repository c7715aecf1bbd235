package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"python.txt": "Python is a programming language.\nIt was created by Guido van Rossum in 1991.",
		"go.txt":     "Go is a programming language. It was designed at Google.",
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunAnswersQuestion(t *testing.T) {
	dir := writeCorpus(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{dir}, strings.NewReader("Who created it?\n"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "It was created by Guido van Rossum in 1991.\n" {
		t.Errorf("stdout = %q", got)
	}
	if !strings.Contains(stderr.String(), "Query: ") {
		t.Errorf("prompt missing from stderr: %q", stderr.String())
	}
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"a", "b"}} {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr); code != 1 {
			t.Errorf("args %v: exit %d, want 1", args, code)
		}
		if !strings.Contains(stderr.String(), usage) {
			t.Errorf("args %v: usage missing from stderr", args)
		}
		if stdout.Len() != 0 {
			t.Errorf("args %v: unexpected stdout %q", args, stdout.String())
		}
	}
}

func TestRunMissingCorpus(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "nope")
	if code := run(context.Background(), []string{missing}, strings.NewReader("q\n"), &stdout, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "corpus not found") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunEmptyCorpusFailsBeforePrompt(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{t.TempDir()}, strings.NewReader("q\n"), &stdout, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "empty corpus") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if strings.Contains(stderr.String(), "Query: ") {
		t.Errorf("prompted despite empty corpus: %q", stderr.String())
	}
}

func TestReadLine(t *testing.T) {
	if got, err := readLine(strings.NewReader("no newline")); err != nil || got != "no newline" {
		t.Errorf("readLine = %q, %v", got, err)
	}
	if got, err := readLine(strings.NewReader("first\r\nsecond\n")); err != nil || got != "first" {
		t.Errorf("readLine = %q, %v", got, err)
	}
	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("expected error on empty input")
	}
}
