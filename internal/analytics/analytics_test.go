package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesTrackedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, nil)
	c.Start(context.Background())
	for i := 0; i < 3; i++ {
		c.Track(QueryEvent{Query: "q", CorpusFingerprint: "ff"})
	}
	c.Close()
	if got := pub.count(); got != 3 {
		t.Fatalf("published %d events, want 3", got)
	}
	if pub.events[0].Key != "ff" {
		t.Errorf("key = %q, want corpus fingerprint", pub.events[0].Key)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := NewCollector(&recordingPublisher{}, 1, m)
	// Not started, so the second event has nowhere to go.
	c.Track(QueryEvent{Query: "a"})
	c.Track(QueryEvent{Query: "b"})
	if got := testutil.ToFloat64(m.AnalyticsDroppedTotal); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestCollectorTrackAfterClose(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	pub := &recordingPublisher{}
	c := NewCollector(pub, 4, m)
	c.Start(context.Background())
	c.Close()

	c.Track(QueryEvent{Query: "late"})
	c.Close()

	if got := pub.count(); got != 0 {
		t.Errorf("published %d events after close, want 0", got)
	}
	if got := testutil.ToFloat64(m.AnalyticsDroppedTotal); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestCollectorConcurrentTrackAndClose(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 8, nil)
	c.Start(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Track(QueryEvent{Query: "q"})
			}
		}()
	}
	c.Close()
	wg.Wait()
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Query: "python", Files: []string{"python.txt"}, Returned: 1, TopScore: 1.2, LatencyMs: 10})
	agg.Record(QueryEvent{Query: "python", Files: []string{"python.txt"}, Returned: 1, TopScore: 1.2, LatencyMs: 20, CacheHit: true})
	agg.Record(QueryEvent{Query: "zebra", UnknownTerms: []string{"zebra"}, Files: []string{"a.txt"}, Returned: 1, LatencyMs: 30})

	stats := agg.Stats()
	if stats.TotalQueries != 3 || stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.ZeroMatchCount != 1 {
		t.Errorf("zero matches = %d, want 1", stats.ZeroMatchCount)
	}
	if stats.AvgLatencyMs != 20 {
		t.Errorf("avg latency = %v, want 20", stats.AvgLatencyMs)
	}
	if len(stats.TopQueries) == 0 || stats.TopQueries[0] != (TermCount{Value: "python", Count: 2}) {
		t.Errorf("top queries = %+v", stats.TopQueries)
	}
	if len(stats.TopUnknownTerms) != 1 || stats.TopUnknownTerms[0].Value != "zebra" {
		t.Errorf("unknown terms = %+v", stats.TopUnknownTerms)
	}
	if stats.TopFiles[0] != (TermCount{Value: "python.txt", Count: 2}) {
		t.Errorf("top files = %+v", stats.TopFiles)
	}
}

func TestHandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	if err := h(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("garbage payload returned %v", err)
	}
	payload, _ := json.Marshal(QueryEvent{Query: "q", Returned: 1, TopScore: 1})
	if err := h(context.Background(), nil, payload); err != nil {
		t.Fatalf("valid payload returned %v", err)
	}
	if got := agg.Stats().TotalQueries; got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

func TestTopNTieBreak(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 2}, 2)
	want := []TermCount{{"c", 2}, {"a", 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("topN = %+v, want %+v", got, want)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Query: "q", Returned: 1, TopScore: 1})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalQueries != 1 {
		t.Errorf("total = %d", stats.TotalQueries)
	}

	rec = httptest.NewRecorder()
	NewHandler(nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled status = %d, want 503", rec.Code)
	}
}

func TestHandlerStatsTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"a", "b", "b", "c"} {
		agg.Record(QueryEvent{Query: q, Returned: 1, TopScore: 1})
	}
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if len(stats.TopQueries) != 1 || stats.TopQueries[0].Value != "b" {
		t.Errorf("top queries = %+v, want [b]", stats.TopQueries)
	}

	for _, bad := range []string{"0", "101", "x"} {
		rec = httptest.NewRecorder()
		NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("top=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestStoreSQLite(t *testing.T) {
	db, err := corpus.OpenSQLite(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := NewStore(db, "sqlite")
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	latest, err := s.LatestSnapshot(ctx)
	if err != nil || latest != nil {
		t.Fatalf("empty store: %v, %v", latest, err)
	}
	if err := s.SaveSnapshot(ctx, AggregatedStats{TotalQueries: 1}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.SaveSnapshot(ctx, AggregatedStats{TotalQueries: 7}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	latest, err = s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest == nil || latest.TotalQueries != 7 {
		t.Errorf("latest = %+v, want TotalQueries 7", latest)
	}
}
