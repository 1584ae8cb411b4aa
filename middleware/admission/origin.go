package admission

import "strings"

// OriginGuard decide se a origem declarada pode prosseguir.
//
// Lista vazia é modo aberto. Caso contrário exige igualdade exata, sem
// curingas nem subdomínios.
type OriginGuard struct {
	allow []string
}

// ParseAllowList quebra a lista separada por vírgula, descartando itens vazios.
func ParseAllowList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func NewOriginGuard(allow []string) *OriginGuard {
	return &OriginGuard{allow: append([]string(nil), allow...)}
}

// Open informa se não há lista configurada.
func (g *OriginGuard) Open() bool {
	return g == nil || len(g.allow) == 0
}

// Allowed compara a origem com a lista por igualdade exata.
func (g *OriginGuard) Allowed(origin string) bool {
	if g.Open() {
		return true
	}
	for _, o := range g.allow {
		if o == origin {
			return true
		}
	}
	return false
}

// Echo devolve o valor para Access-Control-Allow-Origin: a própria origem
// quando permitida, "" caso contrário. Nunca reflete uma origem recusada.
func (g *OriginGuard) Echo(origin string) string {
	if g.Allowed(origin) {
		return origin
	}
	return ""
}
