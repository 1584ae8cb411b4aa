// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.TryAdmit(ctx, key, rule) aplica a janela fixa e retorna uma Decision.
package application
