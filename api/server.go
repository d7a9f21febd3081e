package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seocheck/analyzer"
	"github.com/seo-optimizer/seocheck/logging"
	"github.com/seo-optimizer/seocheck/metrics"
	"github.com/seo-optimizer/seocheck/middleware"
	"github.com/seo-optimizer/seocheck/stats"
)

// MaxMarkupBytes bounds the markup accepted by /api/diagnose
const MaxMarkupBytes = 5 << 20

// Server holds the dependencies of the HTTP handlers
type Server struct {
	Analyzer    *analyzer.Analyzer
	Storage     *stats.Storage
	Statistics  *logging.Statistics
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	Logger      *log.Logger
	DevMode     bool
}

type analyzeRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Keyword string `json:"keyword"`
}

type diagnoseRequest struct {
	HTML    string `json:"html" binding:"required"`
	Keyword string `json:"keyword"`
}

// resultResponse is a diagnostic result tagged with the request ID.
// Cached tells whether the report came from the result cache.
type resultResponse struct {
	RequestID string `json:"requestId"`
	Cached    bool   `json:"cached"`
	*analyzer.Result
}

// Router builds the gin engine with every route and middleware
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(s.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Stats(s.Statistics, s.Metrics, s.Logger))

	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/intent", s.intent)
		api.GET("/statistics", s.statistics)

		limited := api.Group("")
		if s.RateLimiter != nil {
			limited.Use(s.RateLimiter.RateLimit())
		}
		limited.POST("/analyze", s.analyze)
		limited.POST("/diagnose", s.diagnose)
		limited.GET("/suggest", s.suggest)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (s *Server) analyze(c *gin.Context) {
	var request analyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid URL provided",
		})
		return
	}

	// Note whether the report will come from the cache before running
	cached := s.Analyzer.IsCached(request.URL, request.Keyword)

	start := time.Now()
	result, err := s.Analyzer.Analyze(c.Request.Context(), request.URL, request.Keyword)
	loadTime := float64(time.Since(start).Milliseconds())
	c.Set(middleware.DiagnosisTrackedKey, true)

	if err != nil {
		s.Statistics.TrackDiagnosis(request.URL, "", loadTime, true)
		if errors.Is(err, analyzer.ErrPageUnreachable) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": analyzer.ErrPageUnreachable.Error(),
			})
			return
		}
		s.Logger.Error("analysis failed", "url", request.URL, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to analyze URL",
		})
		return
	}

	s.Statistics.TrackDiagnosis(request.URL, string(result.Intent.Category), loadTime, false)
	c.JSON(http.StatusOK, resultResponse{
		RequestID: c.GetString(middleware.RequestIDKey),
		Cached:    cached,
		Result:    result,
	})
}

func (s *Server) diagnose(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxMarkupBytes)

	var request diagnoseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Request must carry the page markup in \"html\"",
		})
		return
	}

	doc, err := analyzer.ParseDocument([]byte(request.HTML))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Could not parse the supplied markup",
		})
		return
	}

	result := s.Analyzer.DiagnoseDocument(c.Request.Context(), doc, request.Keyword)
	c.JSON(http.StatusOK, resultResponse{
		RequestID: c.GetString(middleware.RequestIDKey),
		Result:    result,
	})
}

func (s *Server) intent(c *gin.Context) {
	c.JSON(http.StatusOK, analyzer.ClassifyIntent(c.Query("keyword")))
}

func (s *Server) suggest(c *gin.Context) {
	keyword := c.Query("keyword")
	c.JSON(http.StatusOK, gin.H{
		"keyword":     keyword,
		"suggestions": s.Analyzer.Suggest(c.Request.Context(), keyword),
	})
}

func (s *Server) statistics(c *gin.Context) {
	out := s.Statistics.GetStatistics(s.DevMode)
	if s.DevMode {
		out["cache"] = s.Analyzer.GetCacheStats()
		out["months"] = s.monthlyStats()
	}
	c.JSON(http.StatusOK, out)
}

// monthlyStats lists the engine counters of every retained month
func (s *Server) monthlyStats() map[string]stats.MonthlyStats {
	months := make(map[string]stats.MonthlyStats)
	if s.Storage == nil {
		return months
	}
	for _, month := range s.Storage.GetAllMonths() {
		if counters, ok := s.Storage.GetMonthlyStats(month); ok {
			months[month] = counters
		}
	}
	return months
}
