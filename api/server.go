/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for wizard development

ROUTE GROUPS:
  /api/status, /api/discovery    Wizard data
  /api/mapping                   Mapping read/write
  /api/wizard/*                  Wizard lifecycle
  /api/sick-days/*               Sick-day operations
  /*                             Static files (wizard UI)

STATIC FILE SERVING:
  Serves the built wizard from web/dist/ with an index.html fallback for
  client-side routing; without a build, a plain endpoint listing is shown.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8099"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/discovery", h.GetDiscovery)

		r.Route("/mapping", func(r chi.Router) {
			r.Get("/", h.GetMapping)
			r.Post("/", h.SaveMapping)
		})

		r.Route("/wizard", func(r chi.Router) {
			r.Post("/complete", h.CompleteWizard)
			r.Post("/reset", h.ResetWizard)
		})

		r.Route("/sick-days", func(r chi.Router) {
			r.Get("/", h.ListSickDays)
			r.Post("/activate", h.ActivateSickDay)
			r.Post("/cancel", h.CancelSickDay)
			r.Post("/extend", h.ExtendSickDay)
		})
	})

	// Serve the wizard UI (built assets), falling back to a plain listing.
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Sick Day Helper</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Sick Day Helper API</h1>
<p>The wizard UI is not built. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/status">/api/status</a> - Setup status</li>
<li><a href="/api/discovery">/api/discovery</a> - Discovered entities</li>
<li><a href="/api/sick-days">/api/sick-days</a> - Active sick days</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
