package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

type stubResolver struct {
	identities map[string]models.Identity
	seen       []string
}

func (r *stubResolver) Resolve(_ context.Context, token string) models.Identity {
	r.seen = append(r.seen, token)
	if id, ok := r.identities[token]; ok {
		return id
	}
	return models.Anonymous()
}

var testCookie = SessionCookie{Name: "coursehub_session", TTL: time.Hour}

func newIdentityRouter(resolver *stubResolver, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity(resolver, testCookie))
	handlers := []gin.HandlerFunc{}
	if role != models.RoleNone {
		handlers = append(handlers, RequireRole(role))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, string(CurrentIdentity(c).Role))
	})
	router.GET("/whoami", handlers...)
	return router
}

func TestIdentityPrefersBearerToken(t *testing.T) {
	resolver := &stubResolver{identities: map[string]models.Identity{
		"admin-token": {Authenticated: true, Role: models.RoleAdmin},
	}}
	router := newIdentityRouter(resolver, models.RoleNone)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "cookie-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
	assert.Equal(t, []string{"admin-token"}, resolver.seen)
	assert.Empty(t, w.Header().Values("Set-Cookie"))
}

func TestIdentityReadsCookie(t *testing.T) {
	resolver := &stubResolver{identities: map[string]models.Identity{
		"cookie-token": {Authenticated: true, Role: models.RoleStudent},
	}}
	router := newIdentityRouter(resolver, models.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "cookie-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student", w.Body.String())
}

func TestIdentityClearsStaleCookie(t *testing.T) {
	router := newIdentityRouter(&stubResolver{}, models.RoleNone)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "revoked"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Body.String())
	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0], testCookie.Name+"=;"))
	assert.Contains(t, cookies[0], "Max-Age=0")
}

func TestRequireRoleRejects(t *testing.T) {
	resolver := &stubResolver{identities: map[string]models.Identity{
		"student-token": {Authenticated: true, Role: models.RoleStudent},
	}}
	router := newIdentityRouter(resolver, models.RoleAdmin)

	for _, header := range []string{"", "Bearer student-token", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	}
}

func TestCurrentIdentityDefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, models.Anonymous(), CurrentIdentity(c))

	c.Set(ContextIdentityKey, "garbage")
	assert.False(t, CurrentIdentity(c).Authenticated)
}
