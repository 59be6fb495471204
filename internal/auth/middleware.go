package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
)

const (
	ctxClaimsKey = "authClaims"

	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// Middleware authenticates requests for handler groups.
type Middleware struct {
	tokens *TokenManager
	logger *zap.Logger
}

func NewMiddleware(tokens *TokenManager, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, logger: logger}
}

// tokenFromRequest reads the access token from the cookie or the
// Authorization header, cookie first, matching the web app's behavior.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(accessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireUser rejects requests without a valid user access token.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return m.require(RoleUser)
}

// RequireAdmin rejects requests without a valid admin access token.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return m.require(RoleAdmin)
}

func (m *Middleware) require(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			apierr.Respond(c, m.logger, apierr.Unauthorized("Unauthorized request: Token missing"))
			c.Abort()
			return
		}

		claims, err := m.tokens.VerifyAccess(tokenString)
		if err != nil {
			apierr.Respond(c, m.logger, err)
			c.Abort()
			return
		}

		if claims.Role != role {
			apierr.Respond(c, m.logger, apierr.Forbidden("Not authorized for this resource"))
			c.Abort()
			return
		}

		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims set by the middleware, if any.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// SubjectID returns the authenticated subject id or "".
func SubjectID(c *gin.Context) string {
	if claims, ok := ClaimsFrom(c); ok {
		return claims.SubjectID
	}
	return ""
}

// SetAuthCookies mirrors the token pair into HTTP-only cookies.
func SetAuthCookies(c *gin.Context, pair *TokenPair) {
	secure := c.Request.TLS != nil
	c.SetCookie(accessCookie, pair.AccessToken, int((15 * 60)), "/", "", secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, int((7 * 24 * 3600)), "/", "", secure, true)
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(c *gin.Context) {
	secure := c.Request.TLS != nil
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", secure, true)
}

// RefreshTokenFromRequest reads the refresh token from cookie or body field.
func RefreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(refreshCookie); err == nil && cookie != "" {
		return cookie
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}
