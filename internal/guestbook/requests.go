package guestbook

import (
	"encoding/base64"
	"strings"

	"guestbook-gateway/middleware/admission"
)

type candleRequest struct {
	TurnstileToken string `json:"turnstileToken"`
}

func (c *candleRequest) CaptchaToken() string { return c.TurnstileToken }

func (c *candleRequest) Sanitize() error { return nil }

type messageRequest struct {
	TurnstileToken string `json:"turnstileToken"`
	Name           string `json:"name"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

func (m *messageRequest) CaptchaToken() string { return m.TurnstileToken }

// Sanitize aplica, nesta ordem: campos obrigatórios, tamanho mínimo, limite de links.
func (m *messageRequest) Sanitize() error {
	m.Name = admission.Clamp(m.Name, admission.MaxNameLen)
	m.Title = admission.Clamp(m.Title, admission.MaxTitleLen)
	m.Message = admission.Clamp(m.Message, admission.MaxMessageLen)

	if m.Name == "" || m.Message == "" {
		return admission.MissingField("Missing name/message")
	}
	if admission.RuneLen(m.Message) < admission.MinMessageLen {
		return admission.InvalidInput("Message too short")
	}
	if admission.CountLinks(m.Message) > admission.MaxLinks {
		return admission.PolicyViolation("Too many links")
	}
	return nil
}

var allowedMIME = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

type uploadRequest struct {
	TurnstileToken string `json:"turnstileToken"`
	Filename       string `json:"filename"`
	MIME           string `json:"mime"`
	ContentBase64  string `json:"contentBase64"`

	maxBytes int64
	content  []byte
}

func (u *uploadRequest) CaptchaToken() string { return u.TurnstileToken }

func (u *uploadRequest) Sanitize() error {
	u.Filename = SafeFilename(u.Filename)
	u.MIME = strings.ToLower(strings.TrimSpace(u.MIME))

	if u.ContentBase64 == "" {
		return admission.MissingField("Missing filename/contentBase64")
	}
	if !allowedMIME[u.MIME] {
		return admission.InvalidInput("Unsupported file type")
	}
	// estimativa pelo tamanho do base64, antes de decodificar
	if int64(len(u.ContentBase64))*3/4 > u.maxBytes {
		return admission.PayloadTooLarge("File too large")
	}

	content, err := base64.StdEncoding.DecodeString(u.ContentBase64)
	if err != nil {
		return admission.InvalidInput("Invalid contentBase64")
	}
	u.content = content
	return nil
}
