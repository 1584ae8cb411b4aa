package admission

import (
	"strings"
	"unicode/utf8"
)

// Limites dos campos de mensagem.
const (
	MaxNameLen    = 60
	MaxTitleLen   = 80
	MaxMessageLen = 1200
	MinMessageLen = 3
	MaxLinks      = 2
)

// Clamp apara espaços e corta em max code points. O resultado é aparado de
// novo, então Clamp(Clamp(s, n), n) == Clamp(s, n).
func Clamp(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

// CountLinks conta ocorrências de "http://" e "https://", sem diferenciar
// maiúsculas. Os dois padrões não se sobrepõem.
func CountLinks(s string) int {
	lower := strings.ToLower(s)
	return strings.Count(lower, "http://") + strings.Count(lower, "https://")
}

// RuneLen mede o texto em code points, como Clamp.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
