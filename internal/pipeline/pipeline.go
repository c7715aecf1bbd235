// Package pipeline drives a query through the two ranking stages: files are
// ranked by TF-IDF against an IDF table built over all files, then the
// sentences of the best files are ranked against a second IDF table built
// over those sentences only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/tracing"
)

var errNotLoaded = errors.New("corpus not loaded")

// Normalizer is the text-normalisation collaborator.
type Normalizer interface {
	Tokenize(text string) []string
	SplitIntoSentences(passage string) []string
}

type Config struct {
	FileMatches     int
	SentenceMatches int
	Workers         int
}

// Prepared is a loaded snapshot together with its tokenised file corpus.
// It is immutable and may be shared between concurrent queries; IDF tables
// are never stored on it.
type Prepared struct {
	Snapshot *corpus.Snapshot
	Files    *corpus.Corpus
}

// Fingerprint identifies the snapshot contents.
func (p *Prepared) Fingerprint() string {
	return strconv.FormatUint(p.Snapshot.Fingerprint, 16)
}

// Request asks for an answer. Zero match counts fall back to the pipeline
// defaults.
type Request struct {
	Query           string
	FileMatches     int
	SentenceMatches int
}

type Result struct {
	Query             string                  `json:"query"`
	Terms             []string                `json:"terms"`
	UnknownTerms      []string                `json:"unknown_terms"`
	Files             []ranking.FileScore     `json:"files"`
	Sentences         []ranking.SentenceScore `json:"sentences"`
	CandidateCount    int                     `json:"candidate_sentences"`
	CorpusFingerprint string                  `json:"corpus_fingerprint"`
}

// SentenceTexts returns the ranked sentence texts.
func (r *Result) SentenceTexts() []string {
	texts := make([]string, len(r.Sentences))
	for i, s := range r.Sentences {
		texts[i] = s.ID
	}
	return texts
}

type Pipeline struct {
	norm    Normalizer
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a pipeline. m may be nil.
func New(norm Normalizer, cfg Config, m *metrics.Metrics) *Pipeline {
	if cfg.FileMatches < 1 {
		cfg.FileMatches = 1
	}
	if cfg.SentenceMatches < 1 {
		cfg.SentenceMatches = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{
		norm:    norm,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "qa-pipeline"),
	}
}

// Prepare tokenises every file of the snapshot. Files are tokenised in
// parallel; each worker writes only its own slot.
func (p *Pipeline) Prepare(ctx context.Context, snap *corpus.Snapshot) (*Prepared, error) {
	start := time.Now()
	tokens := make([][]string, len(snap.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, f := range snap.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens[i] = p.norm.Tokenize(f.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenizing corpus: %w", err)
	}
	files := corpus.New(len(snap.Files))
	for i, f := range snap.Files {
		if err := files.Add(f.Name, tokens[i]); err != nil {
			return nil, fmt.Errorf("building file corpus: %w", err)
		}
	}
	p.observeStage("tokenize", start)
	p.logger.Debug("corpus prepared",
		"files", files.Len(),
		"fingerprint", strconv.FormatUint(snap.Fingerprint, 16),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Prepared{Snapshot: snap, Files: files}, nil
}

// Load reads src and prepares it in one step.
func (p *Pipeline) Load(ctx context.Context, src corpus.Source) (*Prepared, error) {
	start := time.Now()
	snap, err := corpus.LoadSnapshot(ctx, src)
	if err != nil {
		return nil, err
	}
	p.observeStage("load", start)
	return p.Prepare(ctx, snap)
}

// QueryTerms returns the sorted, deduplicated terms raw normalises to.
func (p *Pipeline) QueryTerms(raw string) []string {
	return ranking.NewQuery(p.norm.Tokenize(raw)).Terms()
}

// Answer runs both ranking stages for one query.
func (p *Pipeline) Answer(ctx context.Context, prep *Prepared, req Request) (*Result, error) {
	fileMatches, sentenceMatches, err := p.limits(req)
	if err != nil {
		return nil, err
	}
	query := ranking.NewQuery(p.norm.Tokenize(req.Query))

	files, unknown, err := p.rankFiles(ctx, query, prep.Files, fileMatches)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		p.logger.Debug("query terms missing from corpus vocabulary", "unknown_terms", unknown)
		if p.metrics != nil {
			p.metrics.UnknownTermsTotal.Add(float64(len(unknown)))
		}
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.ID
	}
	sentences, candidates, err := p.rankSentences(ctx, query, prep.Snapshot, names, sentenceMatches)
	if err != nil {
		return nil, err
	}

	return &Result{
		Query:             req.Query,
		Terms:             query.Terms(),
		UnknownTerms:      unknown,
		Files:             files,
		Sentences:         sentences,
		CandidateCount:    candidates,
		CorpusFingerprint: prep.Fingerprint(),
	}, nil
}

// SentenceCorpus collects the sentences of the named files, in file rank
// order then text order. Sentences without a single retained token are
// dropped; repeated sentence text keeps its first position.
func (p *Pipeline) SentenceCorpus(snap *corpus.Snapshot, names []string) *corpus.Corpus {
	sentences := corpus.New(0)
	for _, name := range names {
		text, ok := snap.Text(name)
		if !ok {
			continue
		}
		for _, passage := range normalizer.SplitIntoPassages(text) {
			for _, sentence := range p.norm.SplitIntoSentences(passage) {
				if sentences.Contains(sentence) {
					continue
				}
				tokens := p.norm.Tokenize(sentence)
				if len(tokens) == 0 {
					continue
				}
				// Contains was checked above, so Add cannot fail.
				_ = sentences.Add(sentence, tokens)
			}
		}
	}
	return sentences
}

func (p *Pipeline) rankFiles(ctx context.Context, q ranking.Query, files *corpus.Corpus, n int) ([]ranking.FileScore, []string, error) {
	start := time.Now()
	_, span := tracing.Start(ctx, "file_rank")
	defer span.End()
	span.Set("files", files.Len())
	idfs, err := ranking.ComputeIDFs(files)
	if err != nil {
		return nil, nil, err
	}
	ranked := ranking.RankFiles(q, files, idfs)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	p.observeStage("file_rank", start)
	span.Set("returned", len(ranked))
	return ranked, idfs.Unknown(q), nil
}

func (p *Pipeline) rankSentences(ctx context.Context, q ranking.Query, snap *corpus.Snapshot, names []string, n int) ([]ranking.SentenceScore, int, error) {
	start := time.Now()
	_, span := tracing.Start(ctx, "sentence_rank")
	defer span.End()
	sentences := p.SentenceCorpus(snap, names)
	span.Set("candidates", sentences.Len())
	if p.metrics != nil {
		p.metrics.SentenceCandidates.Observe(float64(sentences.Len()))
	}
	if sentences.Len() == 0 {
		return []ranking.SentenceScore{}, 0, nil
	}
	idfs, err := ranking.ComputeIDFs(sentences)
	if err != nil {
		return nil, 0, err
	}
	ranked := ranking.RankSentences(q, sentences, idfs)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	p.observeStage("sentence_rank", start)
	span.Set("returned", len(ranked))
	return ranked, sentences.Len(), nil
}

func (p *Pipeline) limits(req Request) (int, int, error) {
	fileMatches, sentenceMatches := req.FileMatches, req.SentenceMatches
	if fileMatches == 0 {
		fileMatches = p.cfg.FileMatches
	}
	if sentenceMatches == 0 {
		sentenceMatches = p.cfg.SentenceMatches
	}
	if fileMatches < 1 || sentenceMatches < 1 {
		return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, 400,
			"match counts must be positive, got files=%d sentences=%d", fileMatches, sentenceMatches)
	}
	return fileMatches, sentenceMatches, nil
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
