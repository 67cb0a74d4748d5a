// Package loadgen drives concurrent GET /hits traffic and checks that every
// acknowledged increment is accounted for.
package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	TargetURL   string
	Concurrency int
	// Requests caps the run; 0 means run until Duration elapses.
	Requests int
	Duration time.Duration
}

type Summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	TargetURL     string    `json:"target"`

	MinValue int64 `json:"min_value"`
	MaxValue int64 `json:"max_value"`
	// Duplicates counts values reported to more than one request.
	Duplicates int64 `json:"duplicates"`
	// Gaps counts values in [MinValue, MaxValue] no successful request saw.
	Gaps int64 `json:"gaps"`
	// Unknown counts failed requests whose increment may still have been
	// applied (transport error, timeout, unreadable body). Up to that many
	// gaps are unattributable rather than lost.
	Unknown int64 `json:"unknown"`
}

// Consistent reports whether every successful response saw its own value
// and no gap is left unexplained by a request with an unknown outcome.
func (s Summary) Consistent() bool {
	return s.Duplicates == 0 && s.Gaps <= s.Unknown
}

// errUnknownOutcome marks failures where the server may have counted the hit.
var errUnknownOutcome = errors.New("outcome unknown")

type workerResult struct {
	values  []int64
	latMs   []float64
	errors  int64
	unknown int64
}

func Run(ctx context.Context, client *http.Client, cfg Config) (Summary, error) {
	if cfg.TargetURL == "" {
		return Summary{}, errors.New("loadgen: target url is required")
	}
	if cfg.Requests <= 0 && cfg.Duration <= 0 {
		return Summary{}, errors.New("loadgen: either requests or duration must be set")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	// stop only gates new requests; in-flight ones finish under ctx so a
	// deadline never discards a hit the server already counted.
	stop := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		stop, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var remaining atomic.Int64
	remaining.Store(int64(cfg.Requests))

	results := make([]workerResult, cfg.Concurrency)
	var wg sync.WaitGroup
	start := time.Now()

	for id := range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := &results[id]
			for stop.Err() == nil {
				if cfg.Requests > 0 && remaining.Add(-1) < 0 {
					return
				}
				t0 := time.Now()
				v, err := hit(ctx, client, cfg.TargetURL)
				if err != nil {
					res.errors++
					if errors.Is(err, errUnknownOutcome) {
						res.unknown++
					}
					continue
				}
				res.latMs = append(res.latMs, float64(time.Since(t0).Microseconds())/1000.0)
				res.values = append(res.values, v)
			}
		}()
	}
	wg.Wait()
	end := time.Now()

	return summarize(cfg, start, end, results), nil
}

func hit(ctx context.Context, client *http.Client, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w: %w", target, errUnknownOutcome, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		// the store may have applied the increment before the reply was lost
		return 0, fmt.Errorf("GET %s: status=%d: %w", target, resp.StatusCode, errUnknownOutcome)
	default:
		return 0, fmt.Errorf("GET %s: status=%d", target, resp.StatusCode)
	}
	var out map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w: %w", errUnknownOutcome, err)
	}
	v, ok := out["number of hits"]
	if !ok {
		return 0, fmt.Errorf(`%w: response has no "number of hits"`, errUnknownOutcome)
	}
	return v, nil
}

func summarize(cfg Config, start, end time.Time, results []workerResult) Summary {
	var (
		values []int64
		latMs  []float64
		errs   int64
		unk    int64
	)
	for _, r := range results {
		values = append(values, r.values...)
		latMs = append(latMs, r.latMs...)
		errs += r.errors
		unk += r.unknown
	}
	sort.Float64s(latMs)

	elapsed := end.Sub(start).Seconds()
	total := int64(len(values)) + errs
	s := Summary{
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: total,
		SuccessCount:  int64(len(values)),
		ErrorCount:    errs,
		Unknown:       unk,
		Concurrency:   cfg.Concurrency,
		TargetURL:     cfg.TargetURL,
	}
	if len(latMs) > 0 {
		s.P50Ms = percentile(latMs, 50)
		s.P95Ms = percentile(latMs, 95)
		s.P99Ms = percentile(latMs, 99)
	}
	if elapsed > 0 {
		s.ThroughputRPS = float64(total) / elapsed
	}
	if len(values) == 0 {
		return s
	}

	seen := make(map[int64]struct{}, len(values))
	s.MinValue, s.MaxValue = values[0], values[0]
	for _, v := range values {
		if _, dup := seen[v]; dup {
			s.Duplicates++
			continue
		}
		seen[v] = struct{}{}
		s.MinValue = min(s.MinValue, v)
		s.MaxValue = max(s.MaxValue, v)
	}
	s.Gaps = s.MaxValue - s.MinValue + 1 - int64(len(seen))
	return s
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
