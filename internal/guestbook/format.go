package guestbook

import (
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	GuestbookLabel = "guestbook"
	nameSeparator  = "—"
	bodySeparator  = "\n---\n"
)

// FormatIssue monta a issue de uma mensagem. A data sai em UTC com milissegundos.
func FormatIssue(name, title, message string, at time.Time) NewIssue {
	issueTitle := "🕊️ Message — " + name
	if title != "" {
		issueTitle = "🕊️ " + title + " — " + name
	}
	body := "**Nom :** " + name + "\n" +
		"**Date :** " + at.UTC().Format("2006-01-02T15:04:05.000Z07:00") + "\n" +
		"\n---\n\n" +
		message + "\n"

	return NewIssue{Title: issueTitle, Body: body, Labels: []string{GuestbookLabel}}
}

// ParseName devolve o texto depois do último travessão do título, ou "".
func ParseName(title string) string {
	parts := strings.Split(title, nameSeparator)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

// ExtractMessage devolve o trecho depois do primeiro separador; sem separador,
// o corpo inteiro.
func ExtractMessage(body string) string {
	parts := strings.Split(body, bodySeparator)
	if len(parts) > 1 && parts[1] != "" {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(body)
}

var (
	unsafeRun  = regexp.MustCompile(`[^\w.\-]+`)
	underscore = regexp.MustCompile(`_{2,}`)
)

const maxFilenameLen = 80

// SafeFilename troca tudo fora de [A-Za-z0-9_.-] por "_". O resultado é ASCII.
func SafeFilename(name string) string {
	if name == "" {
		name = "file"
	}
	name = unsafeRun.ReplaceAllString(name, "_")
	name = underscore.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

func isImagePath(p string) bool {
	return slices.Contains(imageExts, strings.ToLower(path.Ext(p)))
}

// SelectImages filtra as imagens sob prefix e ordena do mais novo para o mais
// antigo. A ordem é lexical e só vale enquanto o nome começa pelo timestamp
// em milissegundos (largura fixa).
func SelectImages(paths []string, prefix string, limit int) []string {
	dir := strings.TrimSuffix(prefix, "/") + "/"

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, dir) && isImagePath(p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)

	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ClampLimit aplica o intervalo 1..200 do parâmetro limit; vazio ou inválido usa 60.
func ClampLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultAssetLimit
	}
	return min(max(n, 1), maxAssetLimit)
}

const (
	defaultAssetLimit = 60
	maxAssetLimit     = 200
)

// UploadPath é <prefix>/<yyyy>/<mm>/<unixms>_<filename>, em UTC.
func UploadPath(prefix, filename string, at time.Time) string {
	at = at.UTC()
	return strings.TrimSuffix(prefix, "/") + "/" + at.Format("2006/01") + "/" +
		strconv.FormatInt(at.UnixMilli(), 10) + "_" + filename
}
