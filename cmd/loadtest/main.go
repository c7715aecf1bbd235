// Command loadtest drives GET /api/v1/answer with concurrent workers and
// reports latency percentiles, status codes and the server-side cache
// behaviour.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var defaultQuestions = []string{
	"Who created Python?",
	"When was the language designed?",
	"What is machine learning?",
	"How does a neural network learn?",
	"What does TF-IDF measure?",
	"Where was the programming language developed?",
	"Why are sentences ranked by density?",
}

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	rps         float64
	files       int
	sentences   int
	questions   []string
}

type stats struct {
	total     atomic.Int64
	errors    atomic.Int64
	noAnswer  atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *stats) record(d time.Duration, code int, answered bool, err error) {
	s.total.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.errors.Add(1)
	}
	if err == nil && code == http.StatusOK && !answered {
		s.noAnswer.Add(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.latencies = append(s.latencies, d)
		s.codes[code]++
	}
}

func main() {
	opts := options{}
	questionsPath := flag.String("questions", "", "file with one question per line (default: built-in set)")
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the qa server")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	flag.Float64Var(&opts.rps, "rps", 0, "overall request rate limit (0 = unlimited)")
	flag.IntVar(&opts.files, "files", 1, "files parameter sent with each question")
	flag.IntVar(&opts.sentences, "sentences", 1, "sentences parameter sent with each question")
	flag.Parse()

	opts.questions = defaultQuestions
	if *questionsPath != "" {
		qs, err := readQuestions(*questionsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading questions: %v\n", err)
			os.Exit(1)
		}
		opts.questions = qs
	}

	fmt.Println("=== Corpus QA Load Test ===")
	fmt.Printf("Target:      %s\n", opts.baseURL)
	fmt.Printf("Concurrency: %d\n", opts.concurrency)
	fmt.Printf("Duration:    %s\n", opts.duration)
	fmt.Printf("Questions:   %d unique\n\n", len(opts.questions))

	s := run(opts)
	if !report(os.Stdout, s, opts.duration) {
		os.Exit(1)
	}
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var qs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			qs = append(qs, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return qs, nil
}

func run(opts options) *stats {
	s := &stats{codes: make(map[int]int64)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	limit := rate.Inf
	if opts.rps > 0 {
		limit = rate.Limit(opts.rps)
	}
	limiter := rate.NewLimiter(limit, opts.concurrency)

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.concurrency; w++ {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				q := opts.questions[i%len(opts.questions)]
				target := fmt.Sprintf("%s/api/v1/answer?q=%s&files=%d&sentences=%d",
					opts.baseURL, url.QueryEscape(q), opts.files, opts.sentences)
				start := time.Now()
				code, answered, err := ask(gctx, client, target)
				if gctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), code, answered, err)
			}
		})
	}
	_ = g.Wait()
	return s
}

func ask(ctx context.Context, client *http.Client, target string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var body struct {
		Sentences []json.RawMessage `json:"sentences"`
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, false, err
	}
	return resp.StatusCode, len(body.Sentences) > 0, nil
}

// report prints the summary and returns false when nothing completed.
func report(w io.Writer, s *stats, duration time.Duration) bool {
	total := s.total.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Errors:          %d\n", s.errors.Load())
	fmt.Fprintf(w, "Empty Answers:   %d\n", s.noAnswer.Load())
	if total > 0 {
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.latencies); n > 0 {
		sorted := append([]time.Duration(nil), s.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", sorted[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(n))
		for _, p := range []int{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%d:    %s\n", p, percentile(sorted, p))
		}
		fmt.Fprintf(w, "Max:    %s\n", sorted[n-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.codes[code])
	}
	if total == 0 {
		fmt.Fprintln(w, "\nWARNING: No requests completed. Is the server running?")
		return false
	}
	return true
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted)+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
