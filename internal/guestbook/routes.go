package guestbook

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"guestbook-gateway/middleware/admission"
)

// Prefixes onde cada rota é publicada. O segundo mantém as URLs de funções
// da Netlify usadas pelo front-end.
var Prefixes = []string{"/api", "/.netlify/functions"}

// Mount registra as rotas. readLimit envolve as rotas de leitura (nil = sem cota).
func (h *Handlers) Mount(r chi.Router, guard *admission.OriginGuard, readLimit func(http.Handler) http.Handler) {
	if readLimit == nil {
		readLimit = func(next http.Handler) http.Handler { return next }
	}

	write := func(fn http.HandlerFunc) http.Handler {
		return admission.CORS(guard, http.MethodPost)(fn)
	}
	read := func(fn http.HandlerFunc) http.Handler {
		return admission.CORS(guard, http.MethodGet)(admission.RequireOrigin(guard)(readLimit(fn)))
	}

	routes := map[string]http.Handler{
		"candle":   write(h.Candle),
		"message":  write(h.Message),
		"upload":   write(h.Upload),
		"candles":  read(h.Candles),
		"messages": read(h.Messages),
		"assets":   read(h.Assets),
	}
	for _, prefix := range Prefixes {
		for name, handler := range routes {
			r.Handle(prefix+"/"+name, handler)
		}
	}
}
