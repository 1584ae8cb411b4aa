package admission

import (
	"net/http"
	"slices"
	"strings"
)

// CORS escreve os headers de cross-origin em toda resposta, responde o
// pre-flight (204, sem corpo) e recusa métodos fora de methods (405).
//
// O pre-flight nunca chega ao handler: nenhum contador muda e nenhuma
// chamada externa acontece.
func CORS(guard *OriginGuard, methods ...string) func(http.Handler) http.Handler {
	allowed := append(slices.Clone(methods), http.MethodOptions)
	allowMethods := strings.Join(allowed, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", guard.Echo(r.Header.Get("Origin")))
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if !slices.Contains(methods, r.Method) {
				WriteError(w, MethodNotAllowed())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrigin recusa (403) origens fora da lista. Usado nas rotas de leitura;
// nas de escrita a origem é a primeira etapa do Pipeline.
func RequireOrigin(guard *OriginGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.Allowed(r.Header.Get("Origin")) {
				WriteError(w, OriginRejected())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
