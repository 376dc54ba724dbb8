package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"library/internal/auth"
	"library/internal/middleware"
	"library/internal/models"
	"library/internal/services"
)

// AccountHandler serves registration, login/logout and the role-gated
// dashboards.
type AccountHandler struct {
	accounts services.AccountService
	catalog  services.CatalogService
	tokens   *auth.Manager
	denylist auth.Denylist
}

func NewAccountHandler(accounts services.AccountService, catalog services.CatalogService, tokens *auth.Manager, denylist auth.Denylist) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		catalog:  catalog,
		tokens:   tokens,
		denylist: denylist,
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	User        *models.User `json:"user"`
}

// register handles POST /register/. The new user is logged in immediately:
// the response carries a token, and the client is expected to continue at
// /books/.
func (h *AccountHandler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.buildAuthResponse(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// login handles POST /login/.
func (h *AccountHandler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.buildAuthResponse(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// logout handles POST /logout/. Authenticated. The presented token is
// revoked for the remainder of its lifetime.
func (h *AccountHandler) logout(c *gin.Context) {
	v, exists := c.Get(middleware.TokenKey)
	claims, ok := v.(*jwt.RegisteredClaims)
	if !exists || !ok || claims.ExpiresAt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	if err := h.denylist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AccountHandler) buildAuthResponse(user *models.User) (*authResponse, error) {
	token, _, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
		User:        user,
	}, nil
}

// ─── Dashboards ───────────────────────────────────────────────────────────────

// adminDashboard handles GET /admin-dashboard/. Gate: role=Admin.
func (h *AccountHandler) adminDashboard(c *gin.Context) {
	stats, err := h.catalog.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dashboard": models.RoleAdmin,
		"stats":     stats,
	})
}

// librarianDashboard handles GET /librarian-dashboard/. Gate: role=Librarian.
func (h *AccountHandler) librarianDashboard(c *gin.Context) {
	libraries, err := h.catalog.ListLibraries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dashboard": models.RoleLibrarian,
		"libraries": libraries,
	})
}

// memberDashboard handles GET /member-dashboard/. Gate: role=Member.
func (h *AccountHandler) memberDashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	books, err := h.catalog.ListBooks("")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dashboard": models.RoleMember,
		"username":  user.Username,
		"books":     books,
	})
}

// ─── User Administration ──────────────────────────────────────────────────────

type assignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// assignRole handles PUT /users/:id/role/. Gate: role=Admin.
func (h *AccountHandler) assignRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.accounts.AssignRole(userID, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

type grantPermissionsRequest struct {
	Codenames []string `json:"codenames" binding:"required,min=1"`
}

// grantPermissions handles POST /users/:id/permissions/. Gate: role=Admin.
func (h *AccountHandler) grantPermissions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req grantPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.GrantPermissions(userID, req.Codenames)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownPermission):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown permission codename"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}
