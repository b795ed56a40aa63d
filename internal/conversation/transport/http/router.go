package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the webhook surface. Everything conversation-related hangs
// off the Telnyx webhook endpoints; health is for load balancers.
func NewRouter(inbound *InboundHandler, status *StatusHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/webhooks/telnyx", func(r chi.Router) {
		r.Post("/inbound", inbound.HandleInbound)
		r.Post("/status", status.HandleStatus)
	})

	return r
}
