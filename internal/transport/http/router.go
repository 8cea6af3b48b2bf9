package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the REST API, the attempt websocket and the health check.
func NewRouter(api *API, ws *WSHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/topics", api.handleTopics)
		r.Get("/papers", api.handlePapers)
		r.Get("/papers/{yearKey}", api.handlePaper)
		r.Get("/stats", api.handleStats)
		r.Get("/history", api.handleHistory)
		r.Post("/reload", api.handleReload)

		r.Post("/practice", api.handleStartPractice)
		r.Get("/practice/current", api.handleCurrentPractice)
		r.Post("/practice/check", api.handleCheckPractice)
		r.Post("/practice/next", api.handleNextPractice)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
