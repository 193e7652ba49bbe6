package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	auth *service.AuthService
	rdb  *redis.Client
	mr   *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return &fixture{auth: service.NewAuthService(cfg, rdb), rdb: rdb, mr: mr}
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func serve(r *gin.Engine, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func TestStudentRoutesRejectMissingAndForeignTokens(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/student", RequireStudentJWT(f.auth), CheckSingleDeviceSession(f.auth), ok)

	w := serve(r, "/student", "")
	if w.Code != http.StatusUnauthorized || errCode(t, w) != response.ErrTokenRequired {
		t.Fatalf("expected 401 TOKEN_REQUIRED, got %d %s", w.Code, w.Body.String())
	}

	adminToken, err := f.auth.GenerateAdminToken(1, model.AdminRoleAdmin)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}
	w = serve(r, "/student", adminToken)
	if w.Code != http.StatusForbidden || errCode(t, w) != response.ErrStudentAccessOnly {
		t.Fatalf("expected 403 STUDENT_ACCESS_ONLY, got %d %s", w.Code, w.Body.String())
	}

	w = serve(r, "/student", "not-a-jwt")
	if w.Code != http.StatusUnauthorized || errCode(t, w) != response.ErrTokenInvalid {
		t.Fatalf("expected 401 TOKEN_INVALID, got %d", w.Code)
	}
}

func TestSessionResetLocksStudentOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := gin.New()
	r.GET("/student", RequireStudentJWT(f.auth), CheckSingleDeviceSession(f.auth), ok)
	r.GET("/ws", RequireStudentWSAuth(f.auth), ok)

	token, err := f.auth.GenerateStudentToken(ctx, 9, model.ClassSS1)
	if err != nil {
		t.Fatalf("student token: %v", err)
	}
	if w := serve(r, "/student", token); w.Code != http.StatusNoContent {
		t.Fatalf("expected pass, got %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, "/ws?token="+token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected ws pass, got %d %s", w.Code, w.Body.String())
	}

	if err := f.auth.ResetStudentSession(ctx, 9); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if w := serve(r, "/student", token); errCode(t, w) != response.ErrSessionInvalidated {
		t.Fatalf("expected SESSION_INVALIDATED, got %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, "/ws?token="+token, ""); errCode(t, w) != response.ErrSessionInvalidated {
		t.Fatalf("expected ws SESSION_INVALIDATED, got %d %s", w.Code, w.Body.String())
	}
}

func TestWSAuthIgnoresAuthorizationHeader(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/ws", RequireStudentWSAuth(f.auth), ok)

	token, err := f.auth.GenerateStudentToken(context.Background(), 3, model.ClassJSS1)
	if err != nil {
		t.Fatalf("student token: %v", err)
	}
	if w := serve(r, "/ws", token); errCode(t, w) != response.ErrTokenRequired {
		t.Fatalf("expected TOKEN_REQUIRED, got %d %s", w.Code, w.Body.String())
	}
}

func TestPermissionsFollowRole(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	admin := r.Group("/admin", RequireAdminJWT(f.auth))
	admin.GET("/live", RequirePermission(model.PermissionLiveControl), ok)
	admin.GET("/results", RequireAnyPermission(model.PermissionResultsRead, model.PermissionResultsWrite), ok)

	teacher, err := f.auth.GenerateAdminToken(2, model.AdminRoleTeacher)
	if err != nil {
		t.Fatalf("teacher token: %v", err)
	}
	if w := serve(r, "/admin/live", teacher); w.Code != http.StatusForbidden || errCode(t, w) != response.ErrPermissionDenied {
		t.Fatalf("expected teacher denied live control, got %d", w.Code)
	}
	if w := serve(r, "/admin/results", teacher); w.Code != http.StatusNoContent {
		t.Fatalf("expected teacher to read results, got %d", w.Code)
	}

	full, err := f.auth.GenerateAdminToken(1, model.AdminRoleAdmin)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}
	if w := serve(r, "/admin/live", full); w.Code != http.StatusNoContent {
		t.Fatalf("expected admin live control, got %d", w.Code)
	}
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	f := newFixture(t)
	rl := NewRateLimiter(f.rdb, "login", 2, time.Minute, zerolog.Nop())
	r := gin.New()
	r.GET("/login", rl.Middleware(), ok)

	for i := 0; i < 2; i++ {
		if w := serve(r, "/login", ""); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected pass, got %d", i, w.Code)
		}
	}
	w := serve(r, "/login", "")
	if w.Code != http.StatusTooManyRequests || errCode(t, w) != response.ErrRateLimitExceeded {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	f.mr.FastForward(time.Minute + time.Second)
	if w := serve(r, "/login", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected window reset, got %d", w.Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	f := newFixture(t)
	rl := NewRateLimiter(f.rdb, "login", 1, time.Minute, zerolog.Nop())
	r := gin.New()
	r.GET("/login", rl.Middleware(), ok)

	_ = f.rdb.Close()
	for i := 0; i < 3; i++ {
		if w := serve(r, "/login", ""); w.Code != http.StatusNoContent {
			t.Fatalf("expected pass while redis is down, got %d", w.Code)
		}
	}
}

func TestBrotliCompressesOnlyLargeBodies(t *testing.T) {
	large := strings.Repeat("JSS 2 Basic Science ", 200)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func(path, accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", accept)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/large", "gzip, br")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected brotli encoding, got %q", w.Header().Get("Content-Encoding"))
	}
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body) != large {
		t.Fatalf("round trip changed the body")
	}

	w = get("/small", "br")
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Fatalf("small body should pass through, got %q %q", w.Header().Get("Content-Encoding"), w.Body.String())
	}

	w = get("/large", "gzip")
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != large {
		t.Fatalf("client without br should get plain body")
	}
}
