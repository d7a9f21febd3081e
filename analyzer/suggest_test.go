package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSuggestionFetcher(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Query().Get("q")
		items := make([]map[string]string, 25)
		for i := range items {
			items[i] = map[string]string{"phrase": fmt.Sprintf("phrase %d", i)}
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	f := NewSuggestionFetcher(server.URL+"/sug?q=", time.Second, quietLogger())
	phrases := f.Fetch(context.Background(), "ラーメン 店舗")

	if gotKeyword := <-received; gotKeyword != "ラーメン 店舗" {
		t.Errorf("endpoint received keyword %q", gotKeyword)
	}
	if len(phrases) != MaxSuggestions {
		t.Fatalf("got %d phrases, want %d", len(phrases), MaxSuggestions)
	}
	if phrases[0] != "phrase 0" || phrases[19] != "phrase 19" {
		t.Errorf("phrases out of order: %v", phrases)
	}
}

func TestSuggestionFetcherFailuresAreEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>not json</html>")
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			io.WriteString(w, `[{"phrase":"late"}]`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var failures atomic.Int32
			f := NewSuggestionFetcher(server.URL+"/?q=", 50*time.Millisecond, quietLogger())
			f.onError = func() { failures.Add(1) }

			phrases := f.Fetch(context.Background(), "keyword")
			if phrases == nil || len(phrases) != 0 {
				t.Fatalf("expected an empty non-nil list, got %#v", phrases)
			}
			if failures.Load() != 1 {
				t.Errorf("onError called %d times, want 1", failures.Load())
			}
		})
	}
}

func TestSuggestionFetcherSkipsWithoutInput(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `[]`)
	}))
	defer server.Close()

	if got := NewSuggestionFetcher(server.URL+"/?q=", time.Second, quietLogger()).Fetch(context.Background(), "  "); len(got) != 0 {
		t.Errorf("empty keyword gave %v", got)
	}
	if got := NewSuggestionFetcher("", time.Second, quietLogger()).Fetch(context.Background(), "keyword"); len(got) != 0 {
		t.Errorf("disabled fetcher gave %v", got)
	}
	if calls.Load() != 0 {
		t.Errorf("endpoint called %d times", calls.Load())
	}
}
