package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tritonhub/app"
	"tritonhub/fallback"
	"tritonhub/session"
	"tritonhub/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	seeded, err := fallback.NewSeeded(":memory:")
	if err != nil {
		t.Fatalf("seeded store: %v", err)
	}
	t.Cleanup(seeded.Close)

	guard := fallback.NewGuard(fallback.ModeFallback, nil, seeded, nil)
	authFor := func() store.Auth { return seeded }
	registry := app.NewRegistry(guard, authFor)
	service := &Service{Registry: registry, Auth: authFor}

	r := gin.New()
	r.POST("/api/login", service.HandleLogin)
	r.POST("/api/signup", service.HandleSignup)
	r.POST("/api/logout", service.HandleLogout)
	r.GET("/api/me", service.AuthMiddleware(), func(c *gin.Context) {
		identity, _ := CurrentUser(c)
		c.JSON(200, gin.H{"user": identity})
	})
	return r, service
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginValidationOrder(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"email":"","password":""}`, session.ErrMissingFields.Error()},
		{"missing password", `{"email":"a@ucsd.edu","password":""}`, session.ErrMissingFields.Error()},
		{"wrong domain", `{"email":"a@gmail.com","password":"password123"}`, session.ErrBadDomain.Error()},
		{"short password", `{"email":"a@ucsd.edu","password":"abc"}`, session.ErrShortPassword.Error()},
	}

	for _, tc := range cases {
		w := postJSON(r, "/api/login", tc.body)
		if w.Code != 400 {
			t.Fatalf("%s: got status %d", tc.name, w.Code)
		}
		var resp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: bad body: %v", tc.name, err)
		}
		if resp.Error != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, resp.Error, tc.want)
		}
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/login", `{"email":"triton@ucsd.edu","password":"wrong-password"}`)
	if w.Code != 401 {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/login", `{"email":"triton@ucsd.edu","password":"password123"}`)
	if w.Code != 200 {
		t.Fatalf("got status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		User store.Identity `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.User.Email != "triton@ucsd.edu" || resp.User.DisplayName != "Triton" {
		t.Fatalf("wrong user: %+v", resp.User)
	}

	var sessionCookie *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == session.CookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("no session cookie issued")
	}

	identity, err := session.ParseToken(sessionCookie.Value)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if identity.Email != "triton@ucsd.edu" {
		t.Fatalf("token carries wrong identity: %+v", identity)
	}
}

func TestSignupThenDuplicate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/signup", `{"email":"new.student@ucsd.edu","password":"secret99"}`)
	if w.Code != 201 {
		t.Fatalf("signup: got status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		User store.Identity `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.User.DisplayName != "New Student" || resp.User.AvatarInitial != "N" {
		t.Fatalf("derived profile wrong: %+v", resp.User)
	}

	w = postJSON(r, "/api/signup", `{"email":"new.student@ucsd.edu","password":"secret99"}`)
	if w.Code != 400 {
		t.Fatalf("duplicate signup: got status %d", w.Code)
	}
}

func TestMiddlewareGate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("no token: got status %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("garbage token: got status %d", w.Code)
	}

	token, err := session.GenerateToken(store.Identity{
		ID: "u1", Email: "triton@ucsd.edu", DisplayName: "Triton", AvatarInitial: "T",
	})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("valid token: got status %d: %s", w.Code, w.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/logout", `{}`)
	if w.Code != 200 {
		t.Fatalf("logout: got status %d", w.Code)
	}
	var cleared bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == session.CookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not clear the session cookie")
	}
}

func TestLogoutRevokesCallerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	var bearer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/auth/v1/logout" {
			bearer = req.Header.Get("Authorization")
		}
		w.WriteHeader(204)
	}))
	defer server.Close()

	supabase := store.NewSupabase(server.URL, "anon-key")
	guard := fallback.NewGuard(fallback.ModeLive, supabase, nil, nil)
	authFor := func() store.Auth { return supabase }
	service := &Service{Registry: app.NewRegistry(guard, authFor), Auth: authFor}

	r := gin.New()
	r.POST("/api/logout", service.HandleLogout)

	token, err := session.GenerateToken(store.Identity{
		ID: "u1", Email: "triton@ucsd.edu", AccessToken: "token-for-triton",
	})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/logout", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("logout: got status %d", w.Code)
	}
	if bearer != "Bearer token-for-triton" {
		t.Fatalf("revocation ran as %q, want the caller's token", bearer)
	}
}
