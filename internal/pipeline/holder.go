package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
)

// Holder publishes the current prepared corpus. Readers never block;
// reloads are serialised and swap the pointer only after a successful load,
// so a failed reload keeps serving the previous corpus.
type Holder struct {
	pipeline *Pipeline
	source   corpus.Source
	current  atomic.Pointer[Prepared]
	reloadMu sync.Mutex
	logger   *slog.Logger
}

func NewHolder(p *Pipeline, src corpus.Source) *Holder {
	return &Holder{
		pipeline: p,
		source:   src,
		logger:   slog.Default().With("component", "corpus-holder", "source", src.Describe()),
	}
}

// Current returns the live corpus, or nil before the first successful load.
func (h *Holder) Current() *Prepared {
	return h.current.Load()
}

// Reload reads the source again and swaps it in.
func (h *Holder) Reload(ctx context.Context) (*Prepared, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	prep, err := h.pipeline.Load(ctx, h.source)
	if err != nil {
		h.logger.Error("corpus load failed", "error", err)
		return nil, err
	}
	prev := h.current.Swap(prep)
	attrs := []any{"files", prep.Files.Len(), "fingerprint", prep.Fingerprint()}
	if prev != nil {
		attrs = append(attrs, "previous_fingerprint", prev.Fingerprint())
	}
	h.logger.Info("corpus loaded", attrs...)
	return prep, nil
}

// Ping fails when no corpus has been loaded yet.
func (h *Holder) Ping(context.Context) error {
	if h.Current() == nil {
		return errNotLoaded
	}
	return nil
}
