package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/seo-optimizer/seocheck/metrics"
	"github.com/seo-optimizer/seocheck/stats"
)

// Diagnose runs the engine on one parsed document. It is pure: the same
// document and keyword always give the same result, and it is safe to call
// concurrently for different documents.
func Diagnose(doc *goquery.Document, keyword string, t Thresholds) *Result {
	signals := ExtractSignals(doc)
	keywords := ExtractKeywords(signals.BodyPlainText)

	return &Result{
		Keyword:       keyword,
		Report:        BuildReport(Evaluate(signals, t)),
		Keywords:      keywords.Top(TopKeywords),
		KeywordCounts: keywords.Counts(),
		Intent:        ClassifyIntent(keyword),
		Suggestions:   []string{},
	}
}

// Options configures an Analyzer
type Options struct {
	RelayURL       string
	SuggestURL     string
	FetchTimeout   time.Duration
	SuggestTimeout time.Duration
	// SuggestGrace is how long a finished report waits for suggestions
	// that are still in flight.
	SuggestGrace time.Duration
	MaxPageBytes int64
	CacheTTL     time.Duration
	MaxCacheSize int
	Thresholds   Thresholds
}

// DefaultOptions returns the options the service starts with
func DefaultOptions() Options {
	return Options{
		RelayURL:       DefaultRelayURL,
		FetchTimeout:   15 * time.Second,
		SuggestTimeout: 5 * time.Second,
		SuggestGrace:   250 * time.Millisecond,
		MaxPageBytes:   5 << 20,
		CacheTTL:       30 * time.Minute,
		MaxCacheSize:   1000,
		Thresholds:     DefaultThresholds(),
	}
}

type cacheEntry struct {
	result    *Result
	timestamp time.Time
}

// CacheStats describes the analyzer's result cache
type CacheStats struct {
	Entries     int           `json:"entries"`
	Hits        int           `json:"hits"`
	Misses      int           `json:"misses"`
	TTL         time.Duration `json:"ttl"`
	MaxEntries  int           `json:"maxEntries"`
	Diagnoses   int           `json:"diagnoses"`
	FetchErrors int           `json:"fetchErrors"`
}

// Analyzer fetches pages through the relay, runs the engine and caches
// complete results per URL and keyword.
type Analyzer struct {
	fetcher         *Fetcher
	suggester       *SuggestionFetcher
	thresholds      Thresholds
	suggestTimeout  time.Duration
	suggestGrace    time.Duration
	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	stats           *stats.Storage
	metrics         *metrics.Metrics
	logger          *log.Logger
}

// New creates an Analyzer. storage and m may be nil.
func New(opts Options, storage *stats.Storage, m *metrics.Metrics, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}

	a := &Analyzer{
		fetcher:         NewFetcher(opts.RelayURL, opts.FetchTimeout, opts.MaxPageBytes),
		suggester:       NewSuggestionFetcher(opts.SuggestURL, opts.SuggestTimeout, logger),
		thresholds:      opts.Thresholds,
		suggestTimeout:  opts.SuggestTimeout,
		suggestGrace:    opts.SuggestGrace,
		cache:           make(map[string]cacheEntry),
		cacheTTL:        opts.CacheTTL,
		maxCacheSize:    opts.MaxCacheSize,
		lastCleanup:     time.Now(),
		cleanupInterval: 5 * time.Minute,
		stats:           storage,
		metrics:         m,
		logger:          logger,
	}
	a.suggester.onError = func() {
		a.stats.Add(stats.Delta{SuggestionFailures: 1})
		a.metrics.SuggestionFailed()
	}
	return a
}

// generateCacheKey hashes the URL and keyword into a cache key
func generateCacheKey(url, keyword string) string {
	hash := md5.Sum([]byte(url + "\x00" + keyword))
	return hex.EncodeToString(hash[:])
}

// IsCached reports whether a fresh result exists for url and keyword
func (a *Analyzer) IsCached(url, keyword string) bool {
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[generateCacheKey(url, keyword)]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// ClearCache drops every cached result
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// GetCacheStats returns the cache size and this month's counters
func (a *Analyzer) GetCacheStats() CacheStats {
	current := a.stats.GetCurrentStats()

	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	return CacheStats{
		Entries:     len(a.cache),
		Hits:        current.CacheHits,
		Misses:      current.CacheMisses,
		TTL:         a.cacheTTL,
		MaxEntries:  a.maxCacheSize,
		Diagnoses:   current.Diagnoses,
		FetchErrors: current.FetchFailures,
	}
}

// Analyze retrieves url through the relay and diagnoses it. The only error
// it returns wraps ErrPageUnreachable; ctx bounds the whole run.
//
// Scored reports are cached per URL and keyword. Suggestions are looked up
// again on every call, so a failed lookup is never served from the cache.
func (a *Analyzer) Analyze(ctx context.Context, url, keyword string) (*Result, error) {
	if time.Since(a.lastCleanupTime()) > a.cleanupInterval {
		go a.cleanup()
	}

	// The suggestion lookup only needs the keyword, so it starts before
	// the page is fetched and races with scoring.
	suggestions := a.startSuggestions(ctx, keyword)

	// Check the cache first
	cacheKey := generateCacheKey(url, keyword)
	a.cacheMutex.RLock()
	entry, found := a.cache[cacheKey]
	a.cacheMutex.RUnlock()
	if found && time.Since(entry.timestamp) < a.cacheTTL {
		a.stats.Add(stats.Delta{CacheHits: 1})
		a.metrics.CacheLookup(true)
		a.logger.Debug("report served from cache", "url", url)
		return a.withSuggestions(ctx, entry.result, suggestions), nil
	}
	a.stats.Add(stats.Delta{CacheMisses: 1})
	a.metrics.CacheLookup(false)

	markup, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.stats.Add(stats.Delta{FetchFailures: 1})
		a.metrics.FetchFailed()
		a.logger.Warn("page retrieval failed", "url", url, "err", err)
		return nil, err
	}

	doc, err := ParseDocument(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}

	scored := a.run(doc, keyword)
	scored.URL = url

	// Only the scored report goes into the cache, never the suggestions
	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{
		result:    scored,
		timestamp: time.Now(),
	}
	a.cacheMutex.Unlock()

	return a.withSuggestions(ctx, scored, suggestions), nil
}

// DiagnoseDocument runs the engine on an already parsed document and
// attaches keyword suggestions.
func (a *Analyzer) DiagnoseDocument(ctx context.Context, doc *goquery.Document, keyword string) *Result {
	suggestions := a.startSuggestions(ctx, keyword)
	return a.withSuggestions(ctx, a.run(doc, keyword), suggestions)
}

// withSuggestions returns a copy of scored carrying the suggestions that
// arrive within the grace period. The scored result itself is never
// modified, since it may be shared through the cache.
func (a *Analyzer) withSuggestions(ctx context.Context, scored *Result, pending <-chan []string) *Result {
	result := *scored
	result.Suggestions = a.awaitSuggestions(ctx, pending)
	return &result
}

// awaitSuggestions waits briefly for the lookup. A slow lookup yields an
// empty list so the report is never held back by it.
func (a *Analyzer) awaitSuggestions(ctx context.Context, pending <-chan []string) []string {
	timer := time.NewTimer(a.suggestGrace)
	defer timer.Stop()

	select {
	case phrases := <-pending:
		return phrases
	case <-timer.C:
	case <-ctx.Done():
	}

	a.logger.Debug("suggestions still pending, sending the report without them")
	return []string{}
}

// Suggest looks up related phrases for keyword
func (a *Analyzer) Suggest(ctx context.Context, keyword string) []string {
	ctx, cancel := context.WithTimeout(ctx, a.suggestTimeout)
	defer cancel()
	return a.suggester.Fetch(ctx, keyword)
}

func (a *Analyzer) run(doc *goquery.Document, keyword string) *Result {
	start := time.Now()
	result := Diagnose(doc, keyword, a.thresholds)
	elapsed := time.Since(start)

	a.stats.Add(stats.Delta{Diagnoses: 1})
	a.metrics.ObserveDiagnosis(result.Report.Band, elapsed)
	a.logger.Debug("diagnosis complete",
		"score", result.Report.TotalScore,
		"band", result.Report.Band,
		"elapsed", elapsed,
	)
	return result
}

// startSuggestions runs the lookup in its own goroutine. The channel
// always yields exactly one list, empty on failure or timeout.
func (a *Analyzer) startSuggestions(ctx context.Context, keyword string) <-chan []string {
	out := make(chan []string, 1)
	go func() {
		out <- a.Suggest(ctx, keyword)
	}()
	return out
}

func (a *Analyzer) lastCleanupTime() time.Time {
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()
	return a.lastCleanup
}

// cleanup drops expired results and evicts the oldest past the size limit
func (a *Analyzer) cleanup() {
	now := time.Now()

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	if a.maxCacheSize > 0 && len(a.cache) > a.maxCacheSize {
		type keyed struct {
			key       string
			timestamp time.Time
		}
		entries := make([]keyed, 0, len(a.cache))
		for key, entry := range a.cache {
			entries = append(entries, keyed{key, entry.timestamp})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})

		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}

	a.lastCleanup = now
}

// Shutdown saves the activity counters and drops the cache
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}

	if err := a.stats.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown stats storage: %w", err)
	}

	a.ClearCache()
	return nil
}
