package guestbook

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"guestbook-gateway/middleware/admission"
	"guestbook-gateway/middleware/ratelimit/domain"
)

type Config struct {
	Owner    string
	Repo     string
	HasToken bool
	Branch   string

	CandleIssue    int
	CandleReaction string

	UploadPrefix   string
	MaxUploadBytes int64
	UploadCaptcha  bool

	CandleRule  domain.Rule
	MessageRule domain.Rule
	UploadRule  domain.Rule
}

type Handlers struct {
	cfg      Config
	store    Store
	pipeline *admission.Pipeline
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewHandlers(cfg Config, store Store, pipeline *admission.Pipeline, log logrus.FieldLogger) *Handlers {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.UploadPrefix == "" {
		cfg.UploadPrefix = "assets"
	}
	if cfg.CandleReaction == "" {
		cfg.CandleReaction = "heart"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{cfg: cfg, store: store, pipeline: pipeline, log: log, now: time.Now}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type messageResponse struct {
	OK     bool   `json:"ok"`
	Number int    `json:"number"`
	URL    string `json:"url"`
}

type candlesResponse struct {
	OK       bool   `json:"ok"`
	Reaction string `json:"reaction"`
	Count    int    `json:"count"`
}

type messageItem struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
	Message   string    `json:"message"`
}

type messagesResponse struct {
	OK    bool          `json:"ok"`
	Items []messageItem `json:"items"`
}

type assetItem struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type assetsResponse struct {
	OK    bool        `json:"ok"`
	Count int         `json:"count"`
	Items []assetItem `json:"items"`
}

type uploadResponse struct {
	OK   bool    `json:"ok"`
	Path string  `json:"path"`
	URL  *string `json:"url"`
}

// ready devolve a checagem de configuração de uma rota.
func (h *Handlers) ready(msg string, needToken, needIssue bool) func() error {
	return func() error {
		missing := h.store == nil || h.cfg.Owner == "" || h.cfg.Repo == ""
		if needToken && !h.cfg.HasToken {
			missing = true
		}
		if needIssue && h.cfg.CandleIssue <= 0 {
			missing = true
		}
		if missing {
			return admission.Configuration(msg, nil)
		}
		return nil
	}
}

// Candle acende uma vela: uma reação na issue dedicada.
func (h *Handlers) Candle(w http.ResponseWriter, r *http.Request) {
	var req candleRequest
	gate := admission.Gate{
		Action:  "candle",
		Rule:    h.cfg.CandleRule,
		Captcha: true,
		Ready:   h.ready("Missing GitHub configuration (token/owner/repo/issue)", true, true),
	}
	if err := h.pipeline.Admit(r, gate, &req); err != nil {
		admission.WriteError(w, err)
		return
	}

	if err := h.store.CreateReaction(r.Context(), h.cfg.CandleIssue, h.cfg.CandleReaction); err != nil {
		h.fail(w, "candle", err)
		return
	}
	admission.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// Message publica uma mensagem como issue com o rótulo do livro.
func (h *Handlers) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	gate := admission.Gate{
		Action:  "message",
		Rule:    h.cfg.MessageRule,
		Captcha: true,
		Ready:   h.ready("Missing GitHub configuration", true, false),
	}
	if err := h.pipeline.Admit(r, gate, &req); err != nil {
		admission.WriteError(w, err)
		return
	}

	issue, err := h.store.CreateIssue(r.Context(), FormatIssue(req.Name, req.Title, req.Message, h.now()))
	if err != nil {
		h.fail(w, "message", err)
		return
	}
	admission.WriteJSON(w, http.StatusOK, messageResponse{OK: true, Number: issue.Number, URL: issue.URL})
}

// Upload grava um arquivo no repositório sob o prefixo configurado.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	req := uploadRequest{maxBytes: h.cfg.MaxUploadBytes}
	gate := admission.Gate{
		Action:  "upload",
		Rule:    h.cfg.UploadRule,
		Captcha: h.cfg.UploadCaptcha,
		Ready:   h.ready("Missing GitHub configuration", true, false),
		// base64 ocupa 4/3 do binário, mais folga para o resto do JSON
		MaxBodyBytes: h.cfg.MaxUploadBytes*4/3 + 64<<10,
	}
	if err := h.pipeline.Admit(r, gate, &req); err != nil {
		admission.WriteError(w, err)
		return
	}

	p := UploadPath(h.cfg.UploadPrefix, req.Filename, h.now())
	url, err := h.store.PutFile(r.Context(), p, "chore(assets): upload "+req.Filename, h.cfg.Branch, req.content)
	if err != nil {
		h.fail(w, "upload", err)
		return
	}

	resp := uploadResponse{OK: true, Path: p}
	if url != "" {
		resp.URL = &url
	}
	admission.WriteJSON(w, http.StatusOK, resp)
}

// Candles devolve a contagem de velas.
func (h *Handlers) Candles(w http.ResponseWriter, r *http.Request) {
	if err := h.ready("Missing GitHub configuration (owner/repo/issue)", false, true)(); err != nil {
		admission.WriteError(w, err)
		return
	}

	n, err := h.store.ReactionCount(r.Context(), h.cfg.CandleIssue, h.cfg.CandleReaction)
	if err != nil {
		h.fail(w, "candles", err)
		return
	}
	admission.WriteJSON(w, http.StatusOK, candlesResponse{OK: true, Reaction: h.cfg.CandleReaction, Count: n})
}

const messagesPerPage = 50

// Messages lista as mensagens mais recentes.
func (h *Handlers) Messages(w http.ResponseWriter, r *http.Request) {
	if err := h.ready("Missing GitHub configuration", false, false)(); err != nil {
		admission.WriteError(w, err)
		return
	}

	q := "repo:" + h.cfg.Owner + "/" + h.cfg.Repo + " label:" + GuestbookLabel + " is:issue"
	issues, err := h.store.SearchIssues(r.Context(), q, messagesPerPage)
	if err != nil {
		h.fail(w, "messages", err)
		return
	}

	items := make([]messageItem, 0, len(issues))
	for _, it := range issues {
		items = append(items, messageItem{
			ID:        it.ID,
			Number:    it.Number,
			Title:     it.Title,
			Name:      ParseName(it.Title),
			CreatedAt: it.CreatedAt,
			URL:       it.URL,
			Message:   ExtractMessage(it.Body),
		})
	}
	admission.WriteJSON(w, http.StatusOK, messagesResponse{OK: true, Items: items})
}

// Assets lista as imagens enviadas, mais novas primeiro.
func (h *Handlers) Assets(w http.ResponseWriter, r *http.Request) {
	if err := h.ready("Missing GitHub configuration", false, false)(); err != nil {
		admission.WriteError(w, err)
		return
	}

	paths, err := h.store.ListFiles(r.Context(), h.cfg.Branch)
	if err != nil {
		h.fail(w, "assets", err)
		return
	}

	selected := SelectImages(paths, h.cfg.UploadPrefix, ClampLimit(r.URL.Query().Get("limit")))
	items := make([]assetItem, 0, len(selected))
	for _, p := range selected {
		items = append(items, assetItem{Path: p, URL: h.store.RawURL(h.cfg.Branch, p)})
	}
	admission.WriteJSON(w, http.StatusOK, assetsResponse{OK: true, Count: len(items), Items: items})
}

// fail traduz um erro do backend e escreve a resposta.
func (h *Handlers) fail(w http.ResponseWriter, action string, err error) {
	e := storeFailure(err)
	h.log.WithError(err).WithFields(logrus.Fields{
		"action": action,
		"status": e.Status,
	}).Warn("backing store call failed")
	admission.WriteError(w, e)
}

func storeFailure(err error) *admission.Error {
	var (
		se  *StoreError
		sha *MissingSHAError
	)
	switch {
	case errors.As(err, &sha):
		return admission.BackingStore(http.StatusInternalServerError, sha.Error(), err)
	case errors.As(err, &se):
		msg := strings.TrimSpace(se.Message)
		if msg == "" {
			msg = "unknown"
		}
		return admission.BackingStore(se.Status, "GitHub error: "+msg, err)
	case errors.Is(err, ErrStoreUnavailable):
		return admission.BackingStore(http.StatusServiceUnavailable, "GitHub unavailable", err)
	default:
		return admission.Upstream("GitHub unavailable", err)
	}
}
