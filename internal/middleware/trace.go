package middleware

import (
	"log"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Trace logs a start line before and a stop line after every request. The
// stop line is written from a defer so it also appears when a handler panics.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())

		log.Printf("[trace] start %s %s req=%s", r.Method, r.URL.Path, reqID)
		defer func() {
			log.Printf("[trace] stop %s %s req=%s status=%d duration=%s",
				r.Method, r.URL.Path, reqID, ww.Status(), time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}
