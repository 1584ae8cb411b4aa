package admission

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindConfiguration
	KindOriginRejected
	KindMethodNotAllowed
	KindRateLimited
	KindBodyMalformed
	KindMissingField
	KindCaptchaMissing
	KindCaptchaFailed
	KindInvalidInput
	KindPolicyViolation
	KindPayloadTooLarge
	KindBackingStore
	KindUpstreamUnavailable
)

var kindNames = map[Kind]string{
	KindUnexpected:          "unexpected",
	KindConfiguration:       "configuration",
	KindOriginRejected:      "origin_rejected",
	KindMethodNotAllowed:    "method_not_allowed",
	KindRateLimited:         "rate_limited",
	KindBodyMalformed:       "body_malformed",
	KindMissingField:        "missing_field",
	KindCaptchaMissing:      "captcha_missing",
	KindCaptchaFailed:       "captcha_failed",
	KindInvalidInput:        "invalid_input",
	KindPolicyViolation:     "policy_violation",
	KindPayloadTooLarge:     "payload_too_large",
	KindBackingStore:        "backing_store",
	KindUpstreamUnavailable: "upstream_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error é a rejeição terminal de uma requisição.
//
// Message vai para o cliente; Err é a causa interna e só aparece em log.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind informa se err (ou algo que ele embrulha) é um *Error do tipo k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(kind Kind, status int, msg string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: msg, Err: cause}
}

func Configuration(msg string, cause error) *Error {
	return newError(KindConfiguration, http.StatusInternalServerError, msg, cause)
}

func OriginRejected() *Error {
	return newError(KindOriginRejected, http.StatusForbidden, "Forbidden origin", nil)
}

func MethodNotAllowed() *Error {
	return newError(KindMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
}

func RateLimited() *Error {
	return newError(KindRateLimited, http.StatusTooManyRequests, "", nil)
}

func BodyMalformed(msg string, cause error) *Error {
	return newError(KindBodyMalformed, http.StatusBadRequest, msg, cause)
}

func MissingField(msg string) *Error {
	return newError(KindMissingField, http.StatusBadRequest, msg, nil)
}

func CaptchaMissing() *Error {
	return newError(KindCaptchaMissing, http.StatusBadRequest, "Missing captcha", nil)
}

func CaptchaFailed() *Error {
	return newError(KindCaptchaFailed, http.StatusBadRequest, "Captcha failed", nil)
}

func InvalidInput(msg string) *Error {
	return newError(KindInvalidInput, http.StatusBadRequest, msg, nil)
}

func PolicyViolation(msg string) *Error {
	return newError(KindPolicyViolation, http.StatusBadRequest, msg, nil)
}

func PayloadTooLarge(msg string) *Error {
	return newError(KindPayloadTooLarge, http.StatusRequestEntityTooLarge, msg, nil)
}

// BackingStore repassa status e mensagem do backend.
func BackingStore(status int, msg string, cause error) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return newError(KindBackingStore, status, msg, cause)
}

// Upstream classifica falha de transporte numa chamada externa:
// prazo estourado vira 504, o resto 502.
func Upstream(msg string, cause error) *Error {
	status := http.StatusBadGateway
	if isTimeout(cause) {
		status = http.StatusGatewayTimeout
	}
	return newError(KindUpstreamUnavailable, status, msg, cause)
}

func Unexpected(cause error) *Error {
	return newError(KindUnexpected, http.StatusInternalServerError, "Server error", cause)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
