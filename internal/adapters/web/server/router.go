package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/wlanctl/internal/adapters/web/middleware"
)

// SetupRoutes registers the control plane API on a gorilla router.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/radios", s.handleListRadios).Methods(http.MethodGet)
	api.HandleFunc("/radios/{name}", s.handleGetRadio).Methods(http.MethodGet)

	// Control operations scan or reassociate, so they are rate limited.
	control := middleware.RateLimitMiddleware(s.ControlLimiter)
	api.Handle("/radios/{name}/join", control(http.HandlerFunc(s.handleJoin))).Methods(http.MethodPost)
	api.Handle("/radios/{name}/disassociate", control(http.HandlerFunc(s.handleDisassociate))).Methods(http.MethodPost)
	api.Handle("/radios/{name}/roam", control(http.HandlerFunc(s.handleRoam))).Methods(http.MethodPost)
	api.Handle("/radios/{name}/flush", control(http.HandlerFunc(s.handleFlush))).Methods(http.MethodPost)

	return r
}
