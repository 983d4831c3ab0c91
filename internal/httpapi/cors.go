package httpapi

import (
	"net/http"
	"slices"
)

// corsMiddleware adds CORS headers for allowed origins and answers
// preflight requests. With no configured origins it is a pass-through.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	if len(s.cors) == 0 {
		return next
	}
	allowAll := slices.Contains(s.cors, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
			// Same-origin or non-browser request.
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(s.cors, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
