package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Statistics collects request-level figures about the service
type Statistics struct {
	UniqueVisitors  map[string]time.Time `json:"uniqueVisitors"`  // IP -> last visit
	Diagnoses       int                  `json:"diagnoses"`       // analysis requests served
	ErrorCount      int                  `json:"errorCount"`      // analysis requests that failed
	PopularURLs     map[string]int       `json:"popularUrls"`     // URL -> count
	Intents         map[string]int       `json:"intents"`         // intent category -> count
	AverageLoadTime float64              `json:"averageLoadTime"` // milliseconds
	TotalLoadTime   float64              `json:"totalLoadTime"`
	LastPersisted   time.Time            `json:"lastPersisted"`

	filePath string
	mutex    sync.RWMutex
}

// PopularURL is one row of the most-diagnosed URLs
type PopularURL struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// NewStatistics creates statistics persisted under dataDir, loading any
// previous snapshot. An empty dataDir keeps them in memory only.
func NewStatistics(dataDir string) (*Statistics, error) {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		Intents:        make(map[string]int),
		LastPersisted:  time.Now(),
	}
	if dataDir != "" {
		s.filePath = filepath.Join(dataDir, "statistics.json")
	}

	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

// TrackVisitor records a visit from ip
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanURL reduces a URL to scheme, host and path, and drops local and API
// URLs entirely.
func cleanURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	clean := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		clean += u.Path
	}

	return strings.TrimSuffix(clean, "/")
}

// TrackDiagnosis records one analysis request
func (s *Statistics) TrackDiagnosis(target, intent string, loadTime float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Diagnoses++

	if cleaned := cleanURL(target); cleaned != "" {
		s.PopularURLs[cleaned]++
	}
	if intent != "" && !hasError {
		s.Intents[intent]++
	}
	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTime
	s.AverageLoadTime = s.TotalLoadTime / float64(s.Diagnoses)
}

// TotalDiagnoses is the number of analysis requests tracked so far
func (s *Statistics) TotalDiagnoses() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Diagnoses
}

func (s *Statistics) uniqueVisitorsCount() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// popularURLs returns the n most diagnosed URLs, ties by URL
func (s *Statistics) popularURLs(n int) []PopularURL {
	rows := make([]PopularURL, 0, len(s.PopularURLs))
	for u, count := range s.PopularURLs {
		rows = append(rows, PopularURL{URL: u, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].URL < rows[j].URL
		}
		return rows[i].Count > rows[j].Count
	})
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

func (s *Statistics) errorRate() float64 {
	if s.Diagnoses == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.Diagnoses) * 100
}

// Save persists the statistics through a temp file and a rename
func (s *Statistics) Save() error {
	if s.filePath == "" {
		return nil
	}

	s.mutex.Lock()
	s.LastPersisted = time.Now()
	data, err := json.Marshal(s)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("could not replace statistics file: %w", err)
	}
	return nil
}

// Load reads a previous snapshot; a missing file is not an error
func (s *Statistics) Load() error {
	if s.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularURLs == nil {
		s.PopularURLs = make(map[string]int)
	}
	if s.Intents == nil {
		s.Intents = make(map[string]int)
	}
	return nil
}

// GetStatistics returns a snapshot. URLs and intents are only shown in
// development mode.
func (s *Statistics) GetStatistics(devMode bool) map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitorsCount(),
		"totalRequests":     s.Diagnoses,
		"errorRate":         s.errorRate(),
		"averageLoadTime":   s.AverageLoadTime,
	}

	if devMode {
		out["popularUrls"] = s.popularURLs(5)
		intents := make(map[string]int, len(s.Intents))
		for k, v := range s.Intents {
			intents[k] = v
		}
		out["intents"] = intents
	}

	return out
}
