package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/access"
	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/services"
	"github.com/konsulo/konsulo-backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	identity *services.VerifiedIdentity
	err      error
	called   bool
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*services.VerifiedIdentity, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type testEnv struct {
	db          *gorm.DB
	log         *logger.Logger
	accountRepo repos.AccountRepo
	identity    services.IdentityService
	adminAuth   services.AdminAuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Account{}, &types.Admin{}, &types.ConsultantProfile{}, &types.ConsultantDocument{}, &types.Wallet{}, &types.WalletTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	accountRepo := repos.NewAccountRepo(db, log)
	walletRepo := repos.NewWalletRepo(db, log)
	return &testEnv{
		db:          db,
		log:         log,
		accountRepo: accountRepo,
		identity:    services.NewIdentityService(db, log, accountRepo, walletRepo, nil, nil),
		adminAuth:   services.NewAdminAuthService(db, log, repos.NewAdminRepo(db, log), "test-secret", time.Hour),
	}
}

func newAuthRouter(env *testEnv, mode services.AuthMode, verifier services.TokenVerifier) *gin.Engine {
	am := NewAuthMiddleware(env.log, mode, verifier, env.identity, env.adminAuth)
	router := gin.New()
	router.GET("/whoami", am.RequireAuth(), func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": rd.Email, "role": rd.Role})
	})
	router.GET("/consultant-only", am.RequireAuth(), am.RequireRole(access.HasRole(types.RoleConsultant)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/admin-only", am.RequireAdmin(), func(c *gin.Context) {
		ad := requestdata.GetAdminData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": ad.Email})
	})
	return router
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Error.Code
}

func TestRequireAuth_MissingAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)
	verifier := &stubVerifier{}
	router := newAuthRouter(env, services.AuthModeProduction, verifier)

	w := doRequest(router, http.MethodGet, "/whoami", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeMissingCredential {
		t.Fatalf("expected MISSING_CREDENTIAL, got %q", code)
	}
	if verifier.called {
		t.Fatalf("verifier must not be called without a bearer credential")
	}
}

func TestRequireAuth_NonBearerScheme(t *testing.T) {
	env := newTestEnv(t)
	verifier := &stubVerifier{}
	router := newAuthRouter(env, services.AuthModeProduction, verifier)

	w := doRequest(router, http.MethodGet, "/whoami", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeMissingCredential {
		t.Fatalf("expected MISSING_CREDENTIAL, got %q", code)
	}
	if verifier.called {
		t.Fatalf("verifier must not be called for a non-bearer scheme")
	}
}

func TestRequireAuth_ProductionResolvesIdentity(t *testing.T) {
	env := newTestEnv(t)
	verifier := &stubVerifier{identity: &services.VerifiedIdentity{
		SubjectID: "sub-42",
		Email:     "alice@example.com",
		FirstName: "Alice",
	}}
	router := newAuthRouter(env, services.AuthModeProduction, verifier)

	w := doRequest(router, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer some-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	account, err := env.accountRepo.GetBySubjectID(context.Background(), nil, "sub-42")
	if err != nil || account == nil {
		t.Fatalf("expected account provisioned for sub-42: %v", err)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	verifier := &stubVerifier{err: apierr.InvalidCredential(errors.New("bad signature"))}
	router := newAuthRouter(env, services.AuthModeProduction, verifier)

	w := doRequest(router, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer junk"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeInvalidCredential {
		t.Fatalf("expected INVALID_CREDENTIAL, got %q", code)
	}
}

func TestRequireAuth_DegradedFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeded := &types.Account{ID: uuid.New(), Email: "known@example.com", Role: types.RoleUser, Verified: true}
	if err := env.accountRepo.Create(ctx, nil, seeded); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	router := newAuthRouter(env, services.AuthModeDegradedFallback, nil)

	// Known header resolves.
	w := doRequest(router, http.MethodGet, "/whoami", map[string]string{"x-user-email": "known@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Missing header fails fast.
	w = doRequest(router, http.MethodGet, "/whoami", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeMissingCredential {
		t.Fatalf("expected MISSING_CREDENTIAL, got %q", code)
	}

	// Unknown email is lookup-only, never provisions.
	w = doRequest(router, http.MethodGet, "/whoami", map[string]string{"x-user-email": "ghost@example.com"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeAccountNotFound {
		t.Fatalf("expected ACCOUNT_NOT_FOUND, got %q", code)
	}
	account, err := env.accountRepo.GetByEmail(ctx, nil, "ghost@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if account != nil {
		t.Fatalf("degraded mode must not provision accounts")
	}
}

func TestRequireRole_DeniesWrongRole(t *testing.T) {
	env := newTestEnv(t)
	verifier := &stubVerifier{identity: &services.VerifiedIdentity{SubjectID: "sub-1", Email: "user@example.com"}}
	router := newAuthRouter(env, services.AuthModeProduction, verifier)

	w := doRequest(router, http.MethodGet, "/consultant-only", map[string]string{"Authorization": "Bearer t"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %q", code)
	}
}

func TestRequireAdmin_SessionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.adminAuth.Signup(ctx, "ops@example.com", "hunter2hunter2", "Ops"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	token, _, err := env.adminAuth.Login(ctx, "ops@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	router := newAuthRouter(env, services.AuthModeProduction, &stubVerifier{})

	w := doRequest(router, http.MethodGet, "/admin-only", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/admin-only", map[string]string{"Authorization": "Bearer not-a-session"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != apierr.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %q", code)
	}
}
