package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const monthLayout = "2006-01"

// MonthlyStats holds the engine activity counters for one month
type MonthlyStats struct {
	Diagnoses          int       `json:"diagnoses"`
	CacheHits          int       `json:"cache_hits"`
	CacheMisses        int       `json:"cache_misses"`
	FetchFailures      int       `json:"fetch_failures"`
	SuggestionFailures int       `json:"suggestion_failures"`
	LastUpdated        time.Time `json:"last_updated"`
}

// Delta is a set of increments applied in one call
type Delta struct {
	Diagnoses          int
	CacheHits          int
	CacheMisses        int
	FetchFailures      int
	SuggestionFailures int
}

// Storage keeps month-bucketed counters and persists them as JSON
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
	logger      *log.Logger
}

// NewStorage opens (or creates) the counters file in dataDir. Failed
// background writes are reported through logger.
func NewStorage(dataDir string, logger *log.Logger) (*Storage, error) {
	if logger == nil {
		logger = log.Default()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
		logger:      logger,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	// Start the background writer
	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes the counters through a temp file and an atomic rename
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to a temporary file first so a crash never leaves half a file
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Rename over the real file (atomic on the same filesystem)
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile) // clean up the temp file if the rename fails
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func (s *Storage) backgroundWriter() {
	defer close(s.stopped)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			// Immediate write requested
			s.persist()
		case <-ticker.C:
			// Periodic write
			s.persist()
		case <-s.done:
			// Shutdown does the final save itself
			return
		}
	}
}

// persist saves the counters and logs a failure instead of dropping it
func (s *Storage) persist() {
	if err := s.save(); err != nil {
		s.logger.Warn("failed to persist stats", "path", s.filePath, "err", err)
	}
}

func (s *Storage) currentMonth() string {
	return s.now().Format(monthLayout)
}

// requestWrite asks the writer for a save; a pending request absorbs it
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
	}
}

// Add applies d to the current month
func (s *Storage) Add(d Delta) {
	if s == nil {
		return
	}
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}

	stats.Diagnoses += d.Diagnoses
	stats.CacheHits += d.CacheHits
	stats.CacheMisses += d.CacheMisses
	stats.FetchFailures += d.FetchFailures
	stats.SuggestionFailures += d.SuggestionFailures
	stats.LastUpdated = s.now()

	// Throttle disk writes to at most one a minute
	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns the counters of the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	if s == nil {
		return MonthlyStats{}
	}
	month := s.currentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[month]; exists {
		return *stats
	}
	return MonthlyStats{}
}

// Cleanup keeps the current month and the retainMonths-1 months before it
func (s *Storage) Cleanup(retainMonths int) {
	if s == nil {
		return
	}
	if retainMonths < 1 {
		retainMonths = 1
	}

	keep := make(map[string]bool, retainMonths)
	now := s.now()
	for i := 0; i < retainMonths; i++ {
		keep[now.AddDate(0, -i, 0).Format(monthLayout)] = true
	}

	removed := 0
	s.mutex.Lock()
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	// Nothing to write when every month was kept
	if removed > 0 {
		s.requestWrite()
	}
}

// GetMonthlyStats returns the counters of a "YYYY-MM" month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths lists the months with counters, newest first
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Shutdown stops the background writer and saves one last time
func (s *Storage) Shutdown() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
	return s.save()
}
