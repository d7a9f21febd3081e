package stats

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir, quietLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	t.Run("Add", func(t *testing.T) {
		storage.Add(Delta{Diagnoses: 1, CacheHits: 2, CacheMisses: 3, FetchFailures: 4, SuggestionFailures: 5})
		stats := storage.GetCurrentStats()

		if stats.Diagnoses != 1 {
			t.Errorf("Expected 1 diagnosis, got %d", stats.Diagnoses)
		}
		if stats.CacheHits != 2 {
			t.Errorf("Expected 2 cache hits, got %d", stats.CacheHits)
		}
		if stats.CacheMisses != 3 {
			t.Errorf("Expected 3 cache misses, got %d", stats.CacheMisses)
		}
		if stats.FetchFailures != 4 {
			t.Errorf("Expected 4 fetch failures, got %d", stats.FetchFailures)
		}
		if stats.SuggestionFailures != 5 {
			t.Errorf("Expected 5 suggestion failures, got %d", stats.SuggestionFailures)
		}
		if stats.LastUpdated.IsZero() {
			t.Error("LastUpdated should be set")
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		if err := storage.save(); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tempDir, "stats.json.tmp")); !os.IsNotExist(err) {
			t.Error("temporary file should have been renamed")
		}

		reloaded, err := NewStorage(tempDir, quietLogger())
		if err != nil {
			t.Fatalf("Failed to reload storage: %v", err)
		}
		defer reloaded.Shutdown()

		stats := reloaded.GetCurrentStats()
		if stats.Diagnoses != 1 || stats.SuggestionFailures != 5 {
			t.Errorf("reloaded stats = %+v", stats)
		}
	})

	t.Run("MonthlyStats", func(t *testing.T) {
		month := time.Now().Format(monthLayout)
		if _, ok := storage.GetMonthlyStats(month); !ok {
			t.Errorf("no stats for current month %s", month)
		}
		if _, ok := storage.GetMonthlyStats("1999-01"); ok {
			t.Error("unexpected stats for 1999-01")
		}
	})
}

func TestStorageRejectsCorruptFile(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "stats.json"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStorage(tempDir, quietLogger()); err == nil {
		t.Fatal("expected an error for a corrupt stats file")
	}
}

func TestCleanup(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	for _, month := range []string{"2026-03", "2026-04", "2026-05", "2026-06"} {
		ts, _ := time.Parse(monthLayout, month)
		storage.now = func() time.Time { return ts }
		storage.Add(Delta{Diagnoses: 1})
	}

	storage.Cleanup(2)

	months := storage.GetAllMonths()
	if len(months) != 2 || months[0] != "2026-06" || months[1] != "2026-05" {
		t.Fatalf("months after cleanup = %v", months)
	}
}

func TestConcurrentAdd(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storage.Add(Delta{Diagnoses: 1, CacheMisses: 1})
			storage.GetCurrentStats()
		}()
	}
	wg.Wait()

	stats := storage.GetCurrentStats()
	if stats.Diagnoses != 100 || stats.CacheMisses != 100 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestShutdown(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewStorage(tempDir, quietLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	storage.Add(Delta{Diagnoses: 3})

	if err := storage.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := storage.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "stats.json")); err != nil {
		t.Fatalf("stats file not written: %v", err)
	}

	var nilStorage *Storage
	nilStorage.Add(Delta{Diagnoses: 1})
	if err := nilStorage.Shutdown(); err != nil {
		t.Fatalf("nil Shutdown: %v", err)
	}
}

func TestPersistFailureIsLogged(t *testing.T) {
	tempDir := t.TempDir()
	var buf bytes.Buffer
	storage, err := NewStorage(tempDir, log.New(&buf))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	// Stop the background writer so the test owns the logger output
	storage.closeOnce.Do(func() { close(storage.done) })
	<-storage.stopped

	storage.Add(Delta{Diagnoses: 1})
	storage.filePath = filepath.Join(tempDir, "missing", "stats.json")
	storage.persist()

	if !bytes.Contains(buf.Bytes(), []byte("failed to persist stats")) {
		t.Fatalf("save failure was not logged: %q", buf.String())
	}
}
