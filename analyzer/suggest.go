package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxSuggestions caps the related phrases returned for a keyword
const MaxSuggestions = 20

type suggestion struct {
	Phrase string `json:"phrase"`
}

// SuggestionFetcher asks a third-party autocomplete endpoint for phrases
// related to a keyword. It is best effort: every failure is logged and
// turned into an empty list.
type SuggestionFetcher struct {
	client   *http.Client
	endpoint string
	logger   *log.Logger
	onError  func()
}

// NewSuggestionFetcher creates a fetcher for endpoint, to which the
// URL-encoded keyword is appended. An empty endpoint disables lookups.
func NewSuggestionFetcher(endpoint string, timeout time.Duration, logger *log.Logger) *SuggestionFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &SuggestionFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		endpoint: endpoint,
		logger:   logger,
	}
}

// Fetch returns at most MaxSuggestions phrases and never fails
func (f *SuggestionFetcher) Fetch(ctx context.Context, keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if f == nil || f.endpoint == "" || keyword == "" {
		return []string{}
	}

	phrases, err := f.fetch(ctx, keyword)
	if err != nil {
		f.logger.Warn("keyword suggestions unavailable", "keyword", keyword, "err", err)
		if f.onError != nil {
			f.onError()
		}
		return []string{}
	}
	return phrases
}

func (f *SuggestionFetcher) fetch(ctx context.Context, keyword string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+url.QueryEscape(keyword), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion endpoint returned status %d", resp.StatusCode)
	}

	var items []suggestion
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}

	phrases := make([]string, 0, min(len(items), MaxSuggestions))
	for _, item := range items {
		if len(phrases) == MaxSuggestions {
			break
		}
		phrases = append(phrases, item.Phrase)
	}
	return phrases, nil
}
