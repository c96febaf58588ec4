package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// panicNotice is swapped into #flashes when an HTMX request blows up, so
// the page the user is on stays intact.
const panicNotice = `<div class="flash flash-error" role="alert" data-dismiss="8000">Something went wrong. Please try again.</div>`

// Recoverer turns a handler panic into a logged 500. HTMX callers get an
// error notification instead of a swapped-in error page. Once the handler
// has started the response only the log entry is written.
// http.ErrAbortHandler keeps propagating so net/http aborts the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic recovered",
				"error", fmt.Sprint(rec),
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFromCtx(r.Context()),
				"stack", string(debug.Stack()),
			)
			if rw.written {
				return
			}

			if r.Header.Get("HX-Request") == "true" {
				h := w.Header()
				h.Set("Content-Type", "text/html; charset=utf-8")
				h.Set("HX-Retarget", "#flashes")
				h.Set("HX-Reswap", "beforeend")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, panicNotice)
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(rw, r)
	})
}
