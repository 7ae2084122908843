package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quietpost/pkg/config"
	"quietpost/pkg/crypt"
	"quietpost/pkg/keys"
	"quietpost/pkg/models"
	"quietpost/pkg/notify"
	"quietpost/pkg/store"
	"quietpost/pkg/token"
)

type testPortal struct {
	srv *httptest.Server
	log *store.Log
}

func newTestPortal(t *testing.T, mutate func(*config.Config)) *testPortal {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security.Secret = "test-secret"
	cfg.Security.Cookie.Name = "rp_session"
	cfg.Security.Cookie.MaxAge = config.Duration(12 * time.Hour)
	cfg.Security.MaxMessageBytes = 2000
	cfg.Security.RateLimit.RPS = 1000
	cfg.Security.RateLimit.Burst = 1000
	cfg.Principals = []config.Principal{
		{OrderRef: "RMA-1001", ZipRef: "30309", SubjectID: "aster", CanClear: true},
		{OrderRef: "RMA-2002", ZipRef: "11215", SubjectID: "berg", CanClear: false},
	}
	if mutate != nil {
		mutate(cfg)
	}

	key := keys.Derive(cfg.Security.Secret)
	codec := token.NewCodec(key)
	cipher, err := crypt.New(key)
	if err != nil {
		t.Fatalf("crypt.New: %v", err)
	}
	log := store.NewLog(store.NewMemory(), "portal-log")
	portal := NewPortal(cfg, codec, cipher, log, notify.NewWebhook("", 0))

	srv := httptest.NewServer(NewRouter(portal))
	t.Cleanup(srv.Close)
	return &testPortal{srv: srv, log: log}
}

// login authenticates with the given factors and returns the session
// cookie. The Secure flag on the cookie keeps net/http cookie jars from
// replaying it over the plain-http test server, so tests attach it by
// hand instead.
func (tp *testPortal) login(t *testing.T, order, zip string) *http.Cookie {
	t.Helper()
	resp := tp.post(t, nil, "/api/login", map[string]string{"order": order, "zip": zip})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "rp_session" {
			return c
		}
	}
	t.Fatalf("login response carried no session cookie")
	return nil
}

func (tp *testPortal) post(t *testing.T, cookie *http.Cookie, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, tp.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func (tp *testPortal) get(t *testing.T, cookie *http.Cookie, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, tp.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	tp := newTestPortal(t, nil)
	resp := tp.post(t, nil, "/api/login", map[string]string{"order": "RMA-1001", "zip": "30309"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "rp_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no session cookie set")
	}
	if !cookie.HttpOnly {
		t.Fatalf("cookie not HttpOnly")
	}
	if !cookie.Secure {
		t.Fatalf("cookie not Secure")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie SameSite = %v", cookie.SameSite)
	}

	var body struct {
		OK       bool   `json:"ok"`
		CanClear bool   `json:"can_clear"`
		Subject  string `json:"subject_id"`
	}
	decodeBody(t, resp, &body)
	if !body.OK || !body.CanClear || body.Subject != "aster" {
		t.Fatalf("unexpected login body: %+v", body)
	}
}

func TestLoginDecoyOnBadCredentials(t *testing.T) {
	tp := newTestPortal(t, nil)

	for _, creds := range []map[string]string{
		{"order": "RMA-1001", "zip": "99999"},
		{"order": "RMA-9999", "zip": "30309"},
		{"order": "", "zip": ""},
	} {
		resp := tp.post(t, nil, "/api/login", creds)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("decoy status = %d, want 200", resp.StatusCode)
		}
		if len(resp.Cookies()) != 0 {
			t.Fatalf("decoy response set a cookie")
		}
		var body struct {
			OK bool `json:"ok"`
		}
		decodeBody(t, resp, &body)
		if body.OK {
			t.Fatalf("decoy reported ok=true")
		}
	}
}

func TestLoginThrottled(t *testing.T) {
	tp := newTestPortal(t, func(cfg *config.Config) {
		cfg.Security.RateLimit.RPS = 0.001
		cfg.Security.RateLimit.Burst = 1
	})

	resp := tp.post(t, nil, "/api/login", map[string]string{"order": "x", "zip": "y"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	resp = tp.post(t, nil, "/api/login", map[string]string{"order": "x", "zip": "y"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
}

func TestSessionRequired(t *testing.T) {
	tp := newTestPortal(t, nil)

	resp := tp.get(t, nil, "/api/messages")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no cookie status = %d, want 401", resp.StatusCode)
	}

	garbage := &http.Cookie{Name: "rp_session", Value: "not.a.token"}
	for _, call := range []func() *http.Response{
		func() *http.Response { return tp.get(t, garbage, "/api/messages") },
		func() *http.Response { return tp.post(t, garbage, "/api/messages", map[string]string{"text": "hi"}) },
		func() *http.Response { return tp.post(t, garbage, "/api/clear", nil) },
		func() *http.Response { return tp.post(t, garbage, "/api/zip-verify", map[string]string{"zip": "30309"}) },
	} {
		resp := call()
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
		}
	}
}

func TestSendAndListRoundTrip(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")
	berg := tp.login(t, "RMA-2002", "11215")

	for _, m := range []struct {
		cookie *http.Cookie
		text   string
	}{
		{aster, "first"},
		{berg, "second"},
		{aster, "third"},
	} {
		resp := tp.post(t, m.cookie, "/api/messages", map[string]string{"text": m.text})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("send status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	var body struct {
		Messages []struct {
			Text string `json:"text"`
			At   int64  `json:"at"`
			Me   bool   `json:"me"`
		} `json:"messages"`
	}
	decodeBody(t, tp.get(t, aster, "/api/messages"), &body)

	if len(body.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(body.Messages))
	}
	wantText := []string{"first", "second", "third"}
	wantMe := []bool{true, false, true}
	for i, m := range body.Messages {
		if m.Text != wantText[i] {
			t.Fatalf("message %d text = %q, want %q", i, m.Text, wantText[i])
		}
		if m.Me != wantMe[i] {
			t.Fatalf("message %d me = %v, want %v", i, m.Me, wantMe[i])
		}
		if m.At == 0 {
			t.Fatalf("message %d has no timestamp", i)
		}
	}

	// the same list through the other session flips the me flags
	decodeBody(t, tp.get(t, berg, "/api/messages"), &body)
	for i, want := range []bool{false, true, false} {
		if body.Messages[i].Me != want {
			t.Fatalf("berg view message %d me = %v, want %v", i, body.Messages[i].Me, want)
		}
	}
}

func TestSendValidation(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")

	resp := tp.post(t, aster, "/api/messages", map[string]string{"text": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty text status = %d, want 400", resp.StatusCode)
	}

	resp = tp.post(t, aster, "/api/messages", "{not json")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", resp.StatusCode)
	}

	// 2000 bytes is accepted, 2001 is not
	resp = tp.post(t, aster, "/api/messages", map[string]string{"text": strings.Repeat("x", 2000)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("at-cap status = %d, want 200", resp.StatusCode)
	}
	resp = tp.post(t, aster, "/api/messages", map[string]string{"text": strings.Repeat("x", 2001)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("over-cap status = %d, want 413", resp.StatusCode)
	}

	recs, err := tp.log.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("rejected sends changed the log: %d records", len(recs))
	}
}

func TestClearRequiresCapability(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")
	berg := tp.login(t, "RMA-2002", "11215")

	resp := tp.post(t, aster, "/api/messages", map[string]string{"text": "keep me"})
	resp.Body.Close()

	resp = tp.post(t, berg, "/api/clear", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("clear without capability status = %d, want 403", resp.StatusCode)
	}
	recs, _ := tp.log.ReadAll(context.Background())
	if len(recs) != 1 {
		t.Fatalf("forbidden clear touched the log: %d records", len(recs))
	}

	resp = tp.post(t, aster, "/api/clear", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", resp.StatusCode)
	}
	recs, _ = tp.log.ReadAll(context.Background())
	if len(recs) != 0 {
		t.Fatalf("log not empty after clear: %d records", len(recs))
	}
}

func TestZipVerify(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")

	var body struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, tp.post(t, aster, "/api/zip-verify", map[string]string{"zip": "30309"}), &body)
	if !body.Valid {
		t.Fatalf("correct zip reported invalid")
	}

	decodeBody(t, tp.post(t, aster, "/api/zip-verify", map[string]string{"zip": "11215"}), &body)
	if body.Valid {
		t.Fatalf("another principal's zip reported valid")
	}

	resp := tp.post(t, aster, "/api/zip-verify", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing zip status = %d, want 400", resp.StatusCode)
	}
}

func TestUnreadableRecordSentinel(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")

	resp := tp.post(t, aster, "/api/messages", map[string]string{"text": "readable"})
	resp.Body.Close()
	err := tp.log.Append(context.Background(), models.Record{
		From: "aster",
		At:   time.Now().UnixMilli(),
		Enc:  "bm90LWEtcmVhbC1ibG9i",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var body struct {
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	decodeBody(t, tp.get(t, aster, "/api/messages"), &body)
	if len(body.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(body.Messages))
	}
	if body.Messages[0].Text != "readable" {
		t.Fatalf("healthy record text = %q", body.Messages[0].Text)
	}
	if body.Messages[1].Text != Unreadable {
		t.Fatalf("corrupt record text = %q, want %q", body.Messages[1].Text, Unreadable)
	}
}

func TestMethodAndRouteErrors(t *testing.T) {
	tp := newTestPortal(t, nil)
	aster := tp.login(t, "RMA-1001", "30309")

	req, _ := http.NewRequest(http.MethodDelete, tp.srv.URL+"/api/messages", nil)
	req.AddCookie(aster)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status = %d, want 405", resp.StatusCode)
	}

	resp = tp.get(t, nil, "/api/nope")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	tp := newTestPortal(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := tp.get(t, nil, path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
