package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seocheck/logging"
	"github.com/seo-optimizer/seocheck/metrics"
)

// saveEvery is how many analysis requests pass between statistics saves
const saveEvery = 100

// Stats tracks visitors, records request metrics and logs each request.
// Handlers report analysis outcomes themselves through TrackDiagnosis.
func Stats(stats *logging.Statistics, m *metrics.Metrics, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		stats.TrackVisitor(c.ClientIP())

		c.Next()

		elapsed := time.Since(start)
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), elapsed)

		logger.Debug("request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", elapsed,
			"request_id", c.GetString(RequestIDKey),
		)

		if total := stats.TotalDiagnoses(); total > 0 && total%saveEvery == 0 && c.GetBool(DiagnosisTrackedKey) {
			go func() {
				if err := stats.Save(); err != nil {
					logger.Warn("failed to save statistics", "err", err)
				}
			}()
		}
	}
}

// DiagnosisTrackedKey marks requests whose handler recorded a diagnosis
const DiagnosisTrackedKey = "diagnosis_tracked"
