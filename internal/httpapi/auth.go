package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context, role string) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	account, err := h.staff.Authenticate(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		if err == auth.ErrBadCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}
		writeError(c, "login", err)
		return
	}
	token, expiresAt, err := auth.TokenFor(account, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		writeError(c, "token issue", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt.Unix(),
		"name":      account.Name,
		"role":      account.Role,
	})
}

// LoginStaff handles POST /api/auth/login/staff.
func (h *Handler) LoginStaff(c *gin.Context) { h.login(c, "staff") }

// LoginAdmin handles POST /api/auth/login/admin.
func (h *Handler) LoginAdmin(c *gin.Context) { h.login(c, "admin") }

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword handles PUT /api/auth/change-password for the
// authenticated account.
func (h *Handler) ChangePassword(c *gin.Context) {
	claimsAny, _ := c.Get("claims")
	claims, ok := claimsAny.(auth.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid session"})
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := h.staff.ChangePassword(c.Request.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		if err == auth.ErrBadCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}
		writeError(c, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
