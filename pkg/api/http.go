package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quietpost/pkg/auth"
	"quietpost/pkg/logger"
	"quietpost/pkg/metrics"
	"quietpost/pkg/utils"
)

// NewRouter wires the portal endpoints. State-mutating routes accept a
// single method each; gorilla/mux answers anything else with the 405
// handler below.
func NewRouter(p *Portal) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog)

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", p.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", p.loginHandler).Methods(http.MethodPost)

	session := api.NewRoute().Subrouter()
	session.Use(auth.RequireSession(p.codec, p.cfg.Security.Cookie.Name))
	session.HandleFunc("/messages", p.sendHandler).Methods(http.MethodPost)
	session.HandleFunc("/messages", p.listHandler).Methods(http.MethodGet)
	session.HandleFunc("/clear", p.clearHandler).Methods(http.MethodPost)
	session.HandleFunc("/zip-verify", p.zipVerifyHandler).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.JSONError(w, http.StatusNotFound, "not found")
	})
	return r
}

// statusWriter captures the response code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		logger.Debug("incoming_request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"headers", logger.SafeHeaders(r),
		)
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RequestDuration.WithLabelValues(route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
		logger.Info("request_done",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyzHandler answers ready once the blob backend responds to a read.
// An absent log blob counts as ready; only transport failures do not.
func (p *Portal) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if err := p.log.Ping(r.Context()); err != nil {
		utils.JSONError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
