package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library/internal/auth"
	"library/internal/models"
	"library/internal/services"
)

// UserKey is the gin context key the authenticated user is stashed under.
const UserKey = "user"

// TokenKey holds the verified claims of the presented token, so logout can
// revoke exactly the token it was called with.
const TokenKey = "token_claims"

// AuthMiddleware implements the two authorization gates: role-gated
// dashboards and permission-gated book mutations. Both run before the gated
// handler; a failed gate short-circuits with a denial response.
type AuthMiddleware struct {
	accounts services.AccountService
	tokens   *auth.Manager
	denylist auth.Denylist
}

func NewAuthMiddleware(accounts services.AccountService, tokens *auth.Manager, denylist auth.Denylist) *AuthMiddleware {
	return &AuthMiddleware{
		accounts: accounts,
		tokens:   tokens,
		denylist: denylist,
	}
}

// RequireAuth verifies the bearer token, rejects revoked tokens and loads the
// caller (with profile and permissions) into the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims, err := m.tokens.Verify(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		if m.denylist.Revoked(c.Request.Context(), claims.ID) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}
		user, err := m.accounts.GetUser(userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		c.Set(UserKey, user)
		c.Set(TokenKey, claims)
		c.Next()
	}
}

// RequireRole admits only callers whose classified role matches exactly.
// There is no role hierarchy: an Admin is rejected from the member dashboard
// just like an anonymous caller.
func (m *AuthMiddleware) RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		got, err := m.accounts.RoleOf(user)
		if err != nil {
			// Missing or corrupt profile: deny, never crash.
			c.JSON(http.StatusForbidden, gin.H{"error": "role could not be determined"})
			c.Abort()
			return
		}
		if got != role {
			c.JSON(http.StatusForbidden, gin.H{"error": string(role) + " access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission admits only callers holding the capability codename. The
// check is boolean and independent of the caller's role.
func (m *AuthMiddleware) RequirePermission(codename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasPermission(codename) {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission " + codename + " required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user stashed by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
