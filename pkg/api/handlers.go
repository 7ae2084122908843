package api

import (
	"net/http"
	"time"

	"quietpost/pkg/auth"
	"quietpost/pkg/config"
	"quietpost/pkg/crypt"
	"quietpost/pkg/logger"
	"quietpost/pkg/metrics"
	"quietpost/pkg/models"
	"quietpost/pkg/notify"
	"quietpost/pkg/store"
	"quietpost/pkg/token"
	"quietpost/pkg/utils"
)

// Unreadable is substituted for a record whose real-content blob fails
// AEAD verification during list. One bad record never aborts the batch.
const Unreadable = "[unreadable]"

// Portal holds the wired dependencies for the five boundary operations.
// Handlers keep no state of their own between requests; the store
// document is the only shared state.
type Portal struct {
	cfg    *config.Config
	codec  *token.Codec
	cipher *crypt.Cipher
	log    *store.Log
	hook   *notify.Webhook
	limits *auth.LimiterPool
}

// NewPortal wires the handlers. All dependencies are passed explicitly;
// nothing here reaches for globals.
func NewPortal(cfg *config.Config, codec *token.Codec, cipher *crypt.Cipher, log *store.Log, hook *notify.Webhook) *Portal {
	return &Portal{
		cfg:    cfg,
		codec:  codec,
		cipher: cipher,
		log:    log,
		hook:   hook,
		limits: auth.NewLimiterPool(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst),
	}
}

// lookupPrincipal matches the two knowledge factors against the static
// credential table by exact comparison.
func (p *Portal) lookupPrincipal(order, zip string) (config.Principal, bool) {
	for _, pr := range p.cfg.Principals {
		if pr.OrderRef == order && pr.ZipRef == zip {
			return pr, true
		}
	}
	return config.Principal{}, false
}

// principalBySubject finds the table entry behind a verified token.
func (p *Portal) principalBySubject(subjectID string) (config.Principal, bool) {
	for _, pr := range p.cfg.Principals {
		if pr.SubjectID == subjectID {
			return pr, true
		}
	}
	return config.Principal{}, false
}

// loginHandler exchanges the two knowledge factors for a session cookie.
// A miss returns a 200-shaped decoy ({"ok":false}) so a passive observer
// cannot separate bad credentials from a transient portal hiccup.
func (p *Portal) loginHandler(w http.ResponseWriter, r *http.Request) {
	if !p.limits.Allow(auth.ClientIP(r)) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		utils.JSONError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var body struct {
		Order string `json:"order"`
		Zip   string `json:"zip"`
	}
	if err := utils.ReadJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	pr, ok := p.lookupPrincipal(body.Order, body.Zip)
	if !ok {
		metrics.LoginAttempts.WithLabelValues("denied").Inc()
		logger.Info("login_denied", "remote", r.RemoteAddr)
		_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"ok": false})
		return
	}

	tok, err := p.codec.Issue(pr.SubjectID, pr.CanClear)
	if err != nil {
		logger.Error("token_issue_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.cfg.Security.Cookie.Name,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.cfg.Security.Cookie.MaxAge.Duration().Seconds()),
	})
	metrics.LoginAttempts.WithLabelValues("granted").Inc()
	logger.Info("login_granted", "subject", pr.SubjectID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"ok":         true,
		"can_clear":  pr.CanClear,
		"subject_id": pr.SubjectID,
	})
}

// sendHandler encrypts the text and its cover summary independently and
// appends one record. The webhook ping afterwards is fire-and-forget.
func (p *Portal) sendHandler(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	var body struct {
		Text    string `json:"text"`
		Summary string `json:"summary"`
	}
	if err := utils.ReadJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Text == "" {
		utils.JSONError(w, http.StatusBadRequest, "empty text")
		return
	}
	if int64(len(body.Text)) > p.cfg.Security.MaxMessageBytes.Int64() {
		utils.JSONError(w, http.StatusRequestEntityTooLarge, "text too large")
		return
	}
	if body.Summary == "" {
		body.Summary = "Your return request has been updated."
	}

	enc, err := p.cipher.Encrypt(body.Text)
	if err != nil {
		logger.Error("encrypt_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fake, err := p.cipher.Encrypt(body.Summary)
	if err != nil {
		logger.Error("encrypt_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rec := models.Record{
		From:    claims.SubjectID,
		At:      time.Now().UnixMilli(),
		Enc:     enc,
		FakeEnc: fake,
	}
	if err := p.log.Append(r.Context(), rec); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "store error")
		return
	}
	metrics.MessagesAppended.Inc()
	p.hook.PortalUpdated()
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"ok": true})
}

type listItem struct {
	Text string `json:"text"`
	At   int64  `json:"at"`
	Me   bool   `json:"me"`
}

// listHandler decrypts the real-content field of every record. A record
// that fails to authenticate is reported as unreadable rather than
// failing the whole response.
func (p *Portal) listHandler(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	recs, err := p.log.ReadAll(r.Context())
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "store error")
		return
	}
	out := make([]listItem, 0, len(recs))
	for _, rec := range recs {
		text, derr := p.cipher.Decrypt(rec.Enc)
		if derr != nil {
			metrics.DecryptFailures.Inc()
			logger.Warn("record_unreadable", "at", rec.At)
			text = Unreadable
		}
		out = append(out, listItem{
			Text: text,
			At:   rec.At,
			Me:   rec.From == claims.SubjectID,
		})
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"messages": out})
}

// clearHandler resets the shared log. The capability is asserted from
// the token alone; there is no secondary check against the table.
func (p *Portal) clearHandler(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.CanClear {
		logger.Warn("clear_forbidden", "subject", claims.SubjectID)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := p.log.Reset(r.Context()); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "store error")
		return
	}
	metrics.LogResets.Inc()
	logger.Info("log_cleared", "subject", claims.SubjectID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"ok": true})
}

// zipVerifyHandler re-checks the caller's zip factor against the table
// entry behind the session. Used by the portal UI before showing
// shipment details.
func (p *Portal) zipVerifyHandler(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	var body struct {
		Zip string `json:"zip"`
	}
	if err := utils.ReadJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Zip == "" {
		utils.JSONError(w, http.StatusBadRequest, "zip required")
		return
	}
	pr, ok := p.principalBySubject(claims.SubjectID)
	valid := ok && pr.ZipRef == body.Zip
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"valid": valid})
}
