package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// ContextIdentityKey is the gin context key storing the resolved models.Identity.
const ContextIdentityKey = "identity"

type identityResolver interface {
	Resolve(ctx context.Context, token string) models.Identity
}

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

// Set issues the session cookie for token.
func (s SessionCookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, token, int(s.TTL.Seconds()), "/", s.Domain, s.Secure, true)
}

// Clear expires the session cookie.
func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, "", -1, "/", s.Domain, s.Secure, true)
}

// Identity resolves the caller from a bearer token or the session cookie and
// stores it on the context. It never rejects a request; RequireRole does that.
// A stale cookie is cleared so the browser stops presenting it.
func Identity(resolver identityResolver, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := sessionToken(c, cookie.Name)
		identity := resolver.Resolve(c.Request.Context(), token)
		if fromCookie && !identity.Authenticated {
			cookie.Clear(c)
		}
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Identity, or an anonymous one.
func CurrentIdentity(c *gin.Context) models.Identity {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return models.Anonymous()
	}
	identity, ok := value.(models.Identity)
	if !ok {
		return models.Anonymous()
	}
	return identity
}

func sessionToken(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	if cookieName == "" {
		return "", false
	}
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}
