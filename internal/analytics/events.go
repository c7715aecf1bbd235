package analytics

import "time"

type EventType string

const (
	EventAnswer    EventType = "answer"
	EventCacheHit  EventType = "cache_hit"
	EventCacheMiss EventType = "cache_miss"
)

// QueryEvent describes one answered question.
type QueryEvent struct {
	Type              EventType `json:"type"`
	Query             string    `json:"query"`
	Terms             []string  `json:"terms"`
	UnknownTerms      []string  `json:"unknown_terms,omitempty"`
	Files             []string  `json:"files"`
	Returned          int       `json:"returned"`
	TopScore          float64   `json:"top_score"`
	LatencyMs         int64     `json:"latency_ms"`
	CacheHit          bool      `json:"cache_hit"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id"`
}

// ZeroMatch reports whether no returned sentence shared a term with the
// query.
func (e QueryEvent) ZeroMatch() bool {
	return e.Returned == 0 || e.TopScore == 0
}
