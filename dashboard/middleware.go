package dashboard

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs first.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestIDHeader carries the per-request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one record per request with its status and duration.
func RequestLogger(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set(RequestIDHeader, requestID)

			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("Request served.",
				log.RequestIDKey, requestID,
				log.HTTPMethodKey, r.Method,
				log.HTTPPathKey, r.URL.Path,
				log.HTTPStatusKey, wrapped.status,
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
		})
	}
}

// Recovery turns a handler panic into a 500 response and an error log. Once
// the handler has started the response only the log is written.
func Recovery(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			err := errors.SafeExecute(r.Method+" "+r.URL.Path, func() error {
				next.ServeHTTP(rec, r)
				return nil
			})
			var panicErr *errors.PanicError
			if !errors.As(err, &panicErr) {
				return
			}
			logger.Error("Panic recovered.", panicErr,
				log.HTTPPathKey, r.URL.Path,
				"stacktrace", panicErr.StackTrace,
				"headers_sent", rec.wroteHeader,
			)
			if !rec.wroteHeader {
				writeError(rec, http.StatusInternalServerError, errors.New("internal server error"))
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
