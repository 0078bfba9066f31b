package middleware

import "net/http"

// NoStore disables caching on every response. Job status and artifacts
// are mutable until the job reaches a terminal state.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
