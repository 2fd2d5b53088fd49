package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/types"
)

// statusWriter captures the response status code for instrumentation.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics and an access log line. The metric
// label carries the route template rather than the raw path so ids do not
// explode the cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		timer := metrics.NewTimer()

		next.ServeHTTP(sw, r)

		label := r.Method
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				label = r.Method + " " + tpl
			}
		}
		metrics.APIRequestsTotal.WithLabelValues(label, strconv.Itoa(sw.status)).Inc()
		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(label))

		log.WithComponent("api").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", timer.Duration()).
			Msg("Handled request")
	})
}

// authenticated wraps a handler that needs a resolved user. Requests
// without valid credentials get a 401 with a uniform body so callers can
// not probe which part of their credentials was wrong.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, *types.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticator.Authenticate(r)
		if err != nil {
			log.WithComponent("api").Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request")
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "unauthorized"})
			return
		}
		next(w, r, user)
	}
}
