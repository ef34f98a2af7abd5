package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/people/backend/internal/handler/person"
	"github.com/zhouzirui/people/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/people/backend/internal/middleware"
	"github.com/zhouzirui/people/backend/pkg/utils"
)

// RouterOptions tunes the cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins   []string
	TraceRequests bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc person.Service, m *metrics.Metrics, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	// outside Recoverer so the stop line sees the 500 it writes
	if opts.TraceRequests {
		r.Use(middlewarePkg.Trace)
	}
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(middlewarePkg.CORS(opts.CORSOrigins))
	}

	r.Get("/hello", handleHello)

	person.New(svc).RegisterRoutes(r)

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}

func handleHello(w http.ResponseWriter, _ *http.Request) {
	utils.RespondText(w, http.StatusOK, "hello world")
}
