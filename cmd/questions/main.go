// Command questions answers one question from a corpus of text files.
//
// Usage:
//
//	questions [-config path] corpus
//
// The prompt and all diagnostics go to stderr; stdout carries only the
// answer sentences, one per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/logger"
)

const usage = "Usage: questions [-config path] corpus"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("questions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = func() { fmt.Fprintln(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, "text")

	src, err := bootstrap.OpenSource(ctx, cfg, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "failed to open corpus: %v\n", err)
		return 1
	}
	defer src.Close()

	p := bootstrap.NewPipeline(cfg, nil)
	prep, err := p.Load(ctx, src)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load corpus: %v\n", err)
		return 1
	}
	if prep.Files.Len() == 0 {
		err := apperrors.Wrapf(apperrors.ErrEmptyCorpus, "no files in %s", src.Describe())
		fmt.Fprintf(stderr, "failed to load corpus: %v\n", err)
		return 1
	}

	fmt.Fprint(stderr, "Query: ")
	query, err := readLine(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "\nfailed to read query: %v\n", err)
		return 1
	}

	result, err := p.Answer(ctx, prep, pipeline.Request{Query: query})
	if err != nil {
		fmt.Fprintf(stderr, "failed to answer: %v\n", err)
		return 1
	}
	for _, sentence := range result.SentenceTexts() {
		fmt.Fprintln(stdout, sentence)
	}
	return 0
}

// readLine returns the first line of r. A final line without a newline is
// accepted; empty input is an error.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
