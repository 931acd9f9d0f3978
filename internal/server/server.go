// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/handler"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Store   store.Store
	Bus     *eventbus.Bus
	Catalog schedule.Catalog

	// LiveFeed is constructed by the caller so it can be subscribed to the
	// bus before the bus starts.
	LiveFeed *handler.LiveFeed

	// SubmissionRPS caps buyer submissions per IP. Zero means the default.
	SubmissionRPS   float64
	SubmissionBurst int
}

// Run starts the HTTP server with all routes registered. It blocks until
// the context is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	ph := handler.NewPropertyHandler(cfg.Store, cfg.Bus, cfg.Catalog)
	ch := handler.NewCommunicationHandler(cfg.Store, cfg.Bus)
	th := handler.NewTemplateHandler(cfg.Store)
	sh := handler.NewSubmissionHandler(cfg.Store, cfg.Bus, cfg.Catalog)
	comph := handler.NewComplianceHandler(cfg.Store, cfg.Catalog)

	rps := cfg.SubmissionRPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.SubmissionBurst
	if burst <= 0 {
		burst = 5
	}
	submitLimiter := handler.NewIPRateLimiter(rps, burst)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/properties", ph.CreateProperty)
		r.Get("/properties", ph.ListProperties)
		r.Get("/properties/{id}", ph.GetProperty)
		r.Patch("/properties/{id}", ph.UpdateProperty)

		r.Post("/properties/{id}/communications", ch.LogCommunication)
		r.Get("/properties/{id}/communications", ch.ListCommunications)
		r.Get("/properties/{id}/timing", comph.GetTiming)

		r.Post("/templates", th.CreateTemplate)
		r.Get("/templates", th.ListTemplates)
		r.Get("/templates/{id}", th.GetTemplate)
		r.Patch("/templates/{id}", th.UpdateTemplate)
		r.Delete("/templates/{id}", th.DeleteTemplate)

		r.Post("/access-tokens", sh.CreateAccessToken)
		r.Get("/access-tokens", sh.ListAccessTokens)
		r.Delete("/access-tokens/{id}", sh.RevokeAccessToken)
		r.Get("/verify-token", sh.VerifyToken)

		r.With(submitLimiter.Middleware).Post("/submissions", sh.CreateSubmission)
		r.Get("/submissions", sh.ListSubmissions)
		r.Get("/submissions/{id}", sh.GetSubmission)

		r.Get("/compliance/queue", comph.GetQueue)
		r.Get("/compliance/stats", comph.GetStats)
		r.Post("/compliance/preview", comph.Preview)
		r.Get("/compliance/export", comph.Export)

		if cfg.LiveFeed != nil {
			r.Get("/compliance/live", cfg.LiveFeed.ServeHTTP)
		}
	})

	wrapped := handler.Recovery(handler.Logging(r))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: wrapped,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
