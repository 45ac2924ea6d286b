package workerhttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-helloworld/internal/infra/config"
)

// NewRouter builds the Worker's internal API server. It carries none
// of the Gateway's auth/rate-limit/CORS middleware: the Worker is only
// ever reachable from the Gateway over a private network.
func NewRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.POST("/chat/message", handler.ChatMessage)
		api.POST("/documents/:doc_id/process", handler.ProcessDocument)
		api.DELETE("/documents/:doc_id/delete-vectors", handler.DeleteDocumentVectors)
	}

	return &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("worker request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", time.Since(start).Milliseconds())
	}
}
