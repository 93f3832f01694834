package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"media-ops/infrastructure/credentials"

	"github.com/gin-gonic/gin"
)

// IAuthHandler defines the interface for YouTube authentication handlers
type IAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

// AuthHandler implements the YouTube OAuth2 connect flow on top of the
// credential manager. Tokens land in the manager's store, never in the
// response body.
type AuthHandler struct {
	manager *credentials.Manager
}

func NewAuthHandler(manager *credentials.Manager) IAuthHandler {
	return &AuthHandler{manager: manager}
}

// GetAuthURL handles GET /auth/youtube
func (h *AuthHandler) GetAuthURL(ctx *gin.Context) {
	state := generateRandomState()

	ctx.SetCookie("oauth_state", state, 600, "/", "", false, true)

	ctx.JSON(http.StatusOK, gin.H{
		"auth_url": h.manager.AuthURL(state),
	})
}

// HandleCallback handles GET /auth/youtube/callback
func (h *AuthHandler) HandleCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}

	state := ctx.Query("state")
	expected, err := ctx.Cookie("oauth_state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "State mismatch",
			"action": "Visit /auth/youtube to start over",
		})
		return
	}

	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Authorization code not found",
		})
		return
	}

	if _, err := h.manager.Exchange(ctx.Request.Context(), code); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to exchange code for token",
			"message": err.Error(),
		})
		return
	}

	// Clear the state cookie
	ctx.SetCookie("oauth_state", "", -1, "/", "", false, true)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "YouTube account connected",
	})
}

// Status handles GET /auth/youtube/status
func (h *AuthHandler) Status(ctx *gin.Context) {
	connected, expiry, scopes := h.manager.Status(ctx.Request.Context())
	ctx.JSON(http.StatusOK, gin.H{
		"connected": connected,
		"expiry":    expiry,
		"scopes":    scopes,
	})
}

// generateRandomState generates a random state parameter for OAuth2
func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
