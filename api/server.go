package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	apicommands "github.com/fleetguard/fleetguard/api/commands"
	apifleet "github.com/fleetguard/fleetguard/api/fleet"
	"github.com/fleetguard/fleetguard/api/respond"
	apitelemetry "github.com/fleetguard/fleetguard/api/telemetry"
	"github.com/fleetguard/fleetguard/core/logger"
)

// Handlers groups the resource handlers mounted on the router.
type Handlers struct {
	Telemetry *apitelemetry.Handler
	Commands  *apicommands.Handler
	Fleet     *apifleet.Handler
}

// NewRouter assembles the API routes. Unsupported methods on a known path
// return 405 with an Allow header naming what the path does support.
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/telemetry", h.Telemetry.Ingest).Methods(http.MethodPost)
	r.HandleFunc("/api/telemetry", h.Telemetry.Recent).Methods(http.MethodGet)
	r.HandleFunc("/api/telemetry/export", h.Telemetry.Export).Methods(http.MethodGet)
	r.HandleFunc("/api/commands", h.Commands.Submit).Methods(http.MethodPost)
	r.HandleFunc("/api/commands", h.Commands.Recent).Methods(http.MethodGet)
	r.HandleFunc("/api/fleet", h.Fleet.Snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/fleet/live", h.Fleet.Live).Methods(http.MethodGet)
	r.HandleFunc("/api/fleet/{id}/acknowledge", h.Fleet.Acknowledge).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.NotFound(w, "no such resource")
	})
	r.MethodNotAllowedHandler = methodNotAllowed(r)
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// methodNotAllowed probes the router with each verb to build the Allow
// header the 405 response carries.
func methodNotAllowed(r *mux.Router) http.Handler {
	verbs := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var allowed []string
		for _, verb := range verbs {
			probe := req.Clone(req.Context())
			probe.Method = verb
			var match mux.RouteMatch
			if r.Match(probe, &match) && match.MatchErr == nil {
				allowed = append(allowed, verb)
			}
		}
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
		}
		respond.Error(w, http.StatusMethodNotAllowed, respond.Problem{
			Kind:    "MethodNotAllowed",
			Message: "method " + req.Method + " is not supported by this resource",
		})
	})
}

// Server hosts the fleet HTTP API.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewServer builds the API server on addr.
func NewServer(addr string, h Handlers, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests with a
// short grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
