package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

// DefaultTrustedHeader é o header com o IP do cliente injetado pelo proxy da Netlify.
const DefaultTrustedHeader = "X-Nf-Client-Connection-Ip"

type ClientIPOptions struct {
	// TrustedHeader é preenchido pelo proxy na frente do serviço; tem prioridade.
	TrustedHeader string
	// TrustXForwardedFor usa o primeiro IP do X-Forwarded-For.
	// Falsificável pelo cliente quando não há proxy reescrevendo o header.
	TrustXForwardedFor bool
	// UseRemoteAddr usa o host de RemoteAddr como último recurso.
	// Desligado, a política devolve "" e todos esses clientes dividem a mesma chave.
	UseRemoteAddr bool
}

// ClientIPFunc monta a política de extração do IP do cliente.
func ClientIPFunc(opts ClientIPOptions) KeyFunc {
	return func(r *http.Request) string {
		if opts.TrustedHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(opts.TrustedHeader)); v != "" {
				return v
			}
		}

		if opts.TrustXForwardedFor {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		if !opts.UseRemoteAddr {
			return ""
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		return strings.TrimSpace(r.RemoteAddr)
	}
}
