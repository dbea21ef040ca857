package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arashthr/shelfmark/internal/ratelimit"
)

// NewRouter mounts the JSON API under /api. Pipeline endpoints go through
// limiter when it is not nil.
func NewRouter(api *Api, limiter *ratelimit.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", healthCheck)

		r.Route("/v1", func(r chi.Router) {
			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", api.IndexAPI)
				r.Group(func(r chi.Router) {
					if limiter != nil {
						r.Use(RateLimitMiddleware(limiter))
					}
					r.Post("/", api.CreateAPI)
					r.Post("/suggest", api.SuggestAPI)
				})
				r.Get("/{id}", api.GetAPI)
				r.Put("/{id}", api.UpdateAPI)
				r.Delete("/{id}", api.DeleteAPI)
			})
			r.Route("/folders", func(r chi.Router) {
				r.Get("/", api.ListFoldersAPI)
				r.Post("/", api.CreateFolderAPI)
				r.Get("/search", api.SearchFoldersAPI)
				r.Get("/{id}", api.GetFolderAPI)
				r.Delete("/{id}", api.DeleteFolderAPI)
			})
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Not found",
		})
	})
	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}
