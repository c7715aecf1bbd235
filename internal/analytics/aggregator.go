package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries     int64       `json:"total_queries"`
	CacheHits        int64       `json:"cache_hits"`
	CacheMisses      int64       `json:"cache_misses"`
	ZeroMatchCount   int64       `json:"zero_match_count"`
	AvgLatencyMs     float64     `json:"avg_latency_ms"`
	P50LatencyMs     int64       `json:"p50_latency_ms"`
	P95LatencyMs     int64       `json:"p95_latency_ms"`
	P99LatencyMs     int64       `json:"p99_latency_ms"`
	TopQueries       []TermCount `json:"top_queries"`
	ZeroMatchQueries []TermCount `json:"zero_match_queries"`
	TopUnknownTerms  []TermCount `json:"top_unknown_terms"`
	TopFiles         []TermCount `json:"top_files"`
	QueriesPerMinute float64     `json:"queries_per_minute"`
}

// TermCount pairs a string (query, term or file name) with how often it
// was seen.
type TermCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// MessageSource is satisfied by *kafka.Consumer.
type MessageSource interface {
	Start(ctx context.Context) error
}

type Aggregator struct {
	mu               sync.RWMutex
	totalQueries     atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	zeroMatches      atomic.Int64
	latencies        []int64
	queryCounts      map[string]int64
	zeroMatchQueries map[string]int64
	unknownTerms     map[string]int64
	fileCounts       map[string]int64
	startTime        time.Time
	logger           *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:        make([]int64, 0, 1024),
		queryCounts:      make(map[string]int64),
		zeroMatchQueries: make(map[string]int64),
		unknownTerms:     make(map[string]int64),
		fileCounts:       make(map[string]int64),
		startTime:        time.Now(),
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// Run consumes events from src until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, src MessageSource) error {
	a.logger.Info("analytics aggregator starting")
	return src.Start(ctx)
}

// HandleEvent adapts the aggregator to a Kafka message handler. Undecodable
// messages are logged and skipped so one bad payload cannot stall the
// partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event QueryEvent) {
	a.totalQueries.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.ZeroMatch()
	if zero {
		a.zeroMatches.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) == maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if zero {
		a.zeroMatchQueries[event.Query]++
	}
	for _, term := range event.UnknownTerms {
		a.unknownTerms[term]++
	}
	for _, f := range event.Files {
		a.fileCounts[f]++
	}
}

// DefaultTop is how many entries each ranked list in AggregatedStats holds.
const DefaultTop = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with n entries per ranked list.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:   a.totalQueries.Load(),
		CacheHits:      a.cacheHits.Load(),
		CacheMisses:    a.cacheMisses.Load(),
		ZeroMatchCount: a.zeroMatches.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroMatchQueries = topN(a.zeroMatchQueries, n)
	stats.TopUnknownTerms = topN(a.unknownTerms, n)
	stats.TopFiles = topN(a.fileCounts, n)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then value ascending for stable output.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for value, count := range counts {
		result = append(result, TermCount{Value: value, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
