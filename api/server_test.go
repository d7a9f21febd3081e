package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seocheck/analyzer"
	"github.com/seo-optimizer/seocheck/logging"
	"github.com/seo-optimizer/seocheck/metrics"
	"github.com/seo-optimizer/seocheck/middleware"
	"github.com/seo-optimizer/seocheck/stats"
)

const testPage = `<html><head><title>Ramen shop in Tokyo, open late every day</title>
<meta name="description" content="Find our ramen shop near the station.">
</head><body><h1>Ramen</h1><p>Ramen ramen noodles</p></body></html>`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()

	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, _ := url.QueryUnescape(r.URL.RawQuery)
		if target != "https://shop.example/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, testPage)
	}))
	t.Cleanup(relay.Close)

	logger := log.New(io.Discard)
	storage, err := stats.NewStorage(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	statistics, err := logging.NewStatistics(t.TempDir())
	if err != nil {
		t.Fatalf("NewStatistics: %v", err)
	}
	m := metrics.New()

	opts := analyzer.DefaultOptions()
	opts.RelayURL = relay.URL + "/?"
	opts.FetchTimeout = 2 * time.Second

	a := analyzer.New(opts, storage, m, logger)
	t.Cleanup(func() { a.Shutdown() })

	s := &Server{
		Analyzer:    a,
		Storage:     storage,
		Statistics:  statistics,
		Metrics:     m,
		RateLimiter: middleware.NewRateLimiter(100, 100),
		Logger:      logger,
		DevMode:     true,
	}
	return s.Router(), s
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)

	w := do(r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	r, s := newTestServer(t)

	w := do(r, http.MethodPost, "/api/analyze", `{"url":"https://shop.example/","keyword":"ラーメン 店舗 アクセス"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		RequestID string `json:"requestId"`
		URL       string `json:"url"`
		Report    struct {
			TotalScore int                              `json:"totalScore"`
			MaxScore   int                              `json:"maxScore"`
			Results    map[string]analyzer.SignalResult `json:"results"`
			Priority   map[string]analyzer.Priority     `json:"priorityByAspect"`
		} `json:"report"`
		Intent analyzer.IntentResult `json:"intent"`
	}
	decode(t, w, &body)

	if body.RequestID != w.Header().Get(middleware.RequestIDHeader) {
		t.Errorf("request id %q does not match header", body.RequestID)
	}
	if body.URL != "https://shop.example/" {
		t.Errorf("url = %q", body.URL)
	}
	if len(body.Report.Results) != 15 || body.Report.MaxScore != 100 {
		t.Errorf("report = %+v", body.Report)
	}
	if body.Intent.Category != analyzer.IntentGo {
		t.Errorf("intent = %s", body.Intent.Category)
	}
	if s.Statistics.TotalDiagnoses() != 1 {
		t.Errorf("tracked diagnoses = %d", s.Statistics.TotalDiagnoses())
	}
}

func TestAnalyzeEndpointReportsCacheUse(t *testing.T) {
	r, _ := newTestServer(t)
	body := `{"url":"https://shop.example/","keyword":"ramen"}`

	var first, second struct {
		Cached bool `json:"cached"`
	}
	decode(t, do(r, http.MethodPost, "/api/analyze", body), &first)
	decode(t, do(r, http.MethodPost, "/api/analyze", body), &second)

	if first.Cached || !second.Cached {
		t.Errorf("cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	r, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing url", `{"keyword":"x"}`, http.StatusBadRequest},
		{"invalid url", `{"url":"not a url"}`, http.StatusBadRequest},
		{"malformed json", `{"url":`, http.StatusBadRequest},
		{"unreachable page", `{"url":"https://gone.example/"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/analyze", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			var body map[string]string
			decode(t, w, &body)
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestDiagnoseEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"html": testPage, "keyword": "ramen"})
	w := do(r, http.MethodPost, "/api/diagnose", string(payload))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Keywords []analyzer.KeywordCount `json:"keywords"`
	}
	decode(t, w, &body)
	if len(body.Keywords) == 0 {
		t.Error("no keywords extracted")
	}

	if w := do(r, http.MethodPost, "/api/diagnose", `{"keyword":"ramen"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing html status = %d", w.Code)
	}
}

func TestIntentEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	w := do(r, http.MethodGet, "/api/intent?keyword="+url.QueryEscape("ラーメン 店舗 アクセス"), "")
	var body analyzer.IntentResult
	decode(t, w, &body)
	if body.Category != analyzer.IntentGo {
		t.Errorf("category = %s", body.Category)
	}
}

func TestSuggestEndpointDisabled(t *testing.T) {
	r, _ := newTestServer(t)

	w := do(r, http.MethodGet, "/api/suggest?keyword=ramen", "")
	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	decode(t, w, &body)
	if body.Suggestions == nil || len(body.Suggestions) != 0 {
		t.Errorf("suggestions = %#v, want empty list", body.Suggestions)
	}
}

func TestStatisticsAndMetrics(t *testing.T) {
	r, _ := newTestServer(t)
	do(r, http.MethodPost, "/api/analyze", `{"url":"https://shop.example/"}`)

	w := do(r, http.MethodGet, "/api/statistics", "")
	var body map[string]interface{}
	decode(t, w, &body)
	if body["totalRequests"] != float64(1) {
		t.Errorf("totalRequests = %v", body["totalRequests"])
	}
	if _, ok := body["cache"]; !ok {
		t.Error("dev mode should expose cache stats")
	}
	months, ok := body["months"].(map[string]interface{})
	if !ok || len(months) != 1 {
		t.Fatalf("months = %#v", body["months"])
	}
	for _, counters := range months {
		if counters.(map[string]interface{})["diagnoses"] != float64(1) {
			t.Errorf("month counters = %v", counters)
		}
	}

	w = do(r, http.MethodGet, "/metrics", "")
	for _, name := range []string{"seocheck_diagnoses_total", "seocheck_cache_lookups_total", "seocheck_http_requests_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("metrics output lacks %s", name)
		}
	}
}
