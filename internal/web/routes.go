package web

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/web/handlers"
	"github.com/kozaktomas/faceverify/internal/web/middleware"
	"github.com/kozaktomas/faceverify/internal/web/static"
)

func (s *Server) setupRoutes() {
	verifyHandler := handlers.NewVerifyHandler(s.runner)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.config.RateLimit > 0 {
				r.Use(middleware.NewRateLimiter(s.config.RateLimit, max(1, s.config.RateBurst), 10*time.Minute).Handler)
			}
			r.Post("/verify", verifyHandler.Verify)
		})
	})

	// Only composites are public. The rotated, matched and uploads areas share the
	// storage root and must stay unreachable.
	if s.outputsDir != "" {
		prefix := OutputsPrefix + "/" + constants.OutputsArea
		root := filesOnly{http.Dir(filepath.Join(s.outputsDir, constants.OutputsArea))}
		fs := http.StripPrefix(prefix, http.FileServer(root))
		s.router.Get(prefix+"/*", fs.ServeHTTP)
	}

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves the upload page
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.Index()
	if err != nil {
		http.Error(w, "upload page not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// filesOnly is an http.FileSystem that hides directories, so the file server
// never renders a listing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
