package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/keygate/backend/internal/cache"
	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/db"
	"github.com/keygate/backend/internal/logging"
	"github.com/keygate/backend/internal/model"
	"github.com/keygate/backend/internal/service"
	tmpl "github.com/keygate/backend/internal/template"
)

type captureMailer struct {
	mu   sync.Mutex
	last string
}

func (m *captureMailer) SendCode(_ context.Context, _ string, data tmpl.CodeData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = data.Code
	return nil
}

func newTestRouter(t *testing.T, twoFactor bool) (*gin.Engine, *captureMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemory()
	mailer := &captureMailer{}
	enabled := "false"
	if twoFactor {
		enabled = "true"
	}

	auth, err := service.NewAuthenticator(service.Deps{
		Accounts:   store,
		Sessions:   store,
		Challenges: cache.NewMemoryChallengeStore(),
		Mailer:     mailer,
		Logger:     logging.Discard(),
	}, config.AuthConfig{
		JWTSecret:  "handler-test-secret",
		SessionTTL: "720h",
		BcryptCost: "4",
	}, config.TwoFactorConfig{
		Enabled:     enabled,
		CodeLength:  "6",
		CodeTTL:     "10m",
		MaxAttempts: "5",
	})
	if err != nil {
		t.Fatalf("NewAuthenticator error: %v", err)
	}

	router := NewRouter(auth, config.ServerConfig{Version: "test", AllowedOrigins: []string{"http://app.local"}}, logging.Discard())
	return router, mailer
}

func doJSON(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuthFlowOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"username":"alice","email":"a@x.io","password":"secret1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	reg := decode[model.RegisterResponse](t, w)
	if reg.AccountID == "" || reg.Token != "" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"username":"bob","email":"a@x.io","password":"pw"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", w.Code)
	}
	if got := decode[model.ErrorResponse](t, w).Error; got != "Email is already in use" {
		t.Fatalf("unexpected error message %q", got)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"wrong"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"secret1"}`,
		map[string]string{deviceNameHeader: "cli"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	token := decode[model.LoginResponse](t, w).Token
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w = doJSON(r, http.MethodGet, "/api/v1/auth/me", "", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	me := decode[model.AuthMeResponse](t, w)
	if me.AccountID != reg.AccountID || me.DeviceName != "cli" || me.Username != "alice" || me.Email != "a@x.io" {
		t.Fatalf("unexpected me response: %+v", me)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", `{"token":"`+token+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/auth/me", "", bearer)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", w.Code)
	}

	// Logging out again, or with a bearer header only, still succeeds.
	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", "", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("repeat logout: expected 200, got %d", w.Code)
	}
}

func TestTwoFactorOverHTTP(t *testing.T) {
	r, mailer := newTestRouter(t, true)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"username":"alice","email":"a@x.io","password":"secret1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"secret1"}`, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("login without code: expected 202, got %d", w.Code)
	}
	if got := decode[model.TwoFactorResponse](t, w).Status; got != "two_factor_required" {
		t.Fatalf("unexpected status %q", got)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"secret1","code":"------"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong code: expected 401, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"secret1","code":"`+mailer.last+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login with code: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if decode[model.LoginResponse](t, w).Token == "" {
		t.Fatalf("expected token")
	}
}

func TestAuthHandlerBadRequests(t *testing.T) {
	r, _ := newTestRouter(t, false)

	cases := []struct {
		path string
		body string
	}{
		{"/api/v1/auth/register", `{`},
		{"/api/v1/auth/register", `{"username":"al","email":"a@x.io","password":"pw"}`},
		{"/api/v1/auth/login", `not json`},
		{"/api/v1/auth/login", `{"email":"","password":""}`},
	}
	for _, tc := range cases {
		w := doJSON(r, http.MethodPost, tc.path, tc.body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", tc.path, tc.body, w.Code)
		}
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r, _ := newTestRouter(t, false)

	for _, headers := range []map[string]string{
		nil,
		{"Authorization": "Basic abc"},
		{"Authorization": "Bearer "},
		{"Authorization": "Bearer not-a-jwt"},
	} {
		w := doJSON(r, http.MethodGet, "/api/v1/auth/me", "", headers)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("headers %v: expected 401, got %d", headers, w.Code)
		}
	}
}

func TestLogoutMalformedBodyUsesBearer(t *testing.T) {
	r, _ := newTestRouter(t, false)

	doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"username":"alice","email":"a@x.io","password":"secret1"}`, nil)
	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.io","password":"secret1"}`, nil)
	token := decode[model.LoginResponse](t, w).Token
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", `{not json`, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/auth/me", "", bearer)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestAuthConfigEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := doJSON(r, http.MethodGet, "/api/v1/auth/config", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[model.AuthConfigResponse](t, w)
	if !got.AllowSignup || !got.TwoFactorEnabled {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[service.ErrorKind]int{
		service.KindEmailAlreadyInUse:    http.StatusConflict,
		service.KindUsernameAlreadyInUse: http.StatusConflict,
		service.KindInvalidCredentials:   http.StatusUnauthorized,
		service.KindInvalidSession:       http.StatusUnauthorized,
		service.KindInvalidInput:         http.StatusBadRequest,
		service.KindForbidden:            http.StatusForbidden,
		service.KindInternal:             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusFor(kind); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}
