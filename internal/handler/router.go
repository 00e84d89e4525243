package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-chat/internal/handler/chat"
	"github.com/zhouzirui/z-chat/internal/metrics"
	middlewarePkg "github.com/zhouzirui/z-chat/internal/middleware"
	"github.com/zhouzirui/z-chat/pkg/utils"
)

// NewRouter wires HTTP routes to core services. m may be nil, in which case
// /metrics is not served.
func NewRouter(replier chat.Replier, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	var observer middlewarePkg.RequestObserver
	if m != nil {
		observer = m
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger, observer))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(replier, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
	})

	return r
}
