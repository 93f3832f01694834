package http

import (
	"errors"
	"net/http"

	"media-ops/domain/dto"
	"media-ops/domain/model"
	"media-ops/usecase"

	"github.com/gin-gonic/gin"
)

// IUploadHandler defines the HTTP handlers for upload sessions.
type IUploadHandler interface {
	StartUpload(ctx *gin.Context)
	GetSession(ctx *gin.Context)
	ListSessions(ctx *gin.Context)
	CancelSession(ctx *gin.Context)
	Cleanup(ctx *gin.Context)
}

type UploadHandler struct {
	uploadUseCase usecase.IUploadUsecase
}

func NewUploadHandler(uploadUseCase usecase.IUploadUsecase) IUploadHandler {
	return &UploadHandler{uploadUseCase: uploadUseCase}
}

// StartUpload handles POST /api/uploads/:videoId
func (h *UploadHandler) StartUpload(ctx *gin.Context) {
	videoID := ctx.Param("videoId")
	if videoID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Video ID is required"})
		return
	}
	var req dto.StartUploadRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	session, err := h.uploadUseCase.StartUpload(ctx.Request.Context(), videoID, req.TestMode)
	if err != nil {
		respondUploadError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": dto.StartUploadResponse{
			SessionID:   session.ID,
			MonitorPath: "/api/uploads/" + session.ID,
		},
	})
}

// GetSession handles GET /api/uploads/:sessionId
func (h *UploadHandler) GetSession(ctx *gin.Context) {
	session, err := h.uploadUseCase.GetSession(ctx.Request.Context(), ctx.Param("sessionId"))
	if err != nil {
		respondUploadError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": session})
}

// ListSessions handles GET /api/uploads
func (h *UploadHandler) ListSessions(ctx *gin.Context) {
	sessions, err := h.uploadUseCase.ListSessions(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": sessions})
}

// CancelSession handles DELETE /api/uploads/:sessionId. With
// ?cancelAll=true every active session is cancelled.
func (h *UploadHandler) CancelSession(ctx *gin.Context) {
	if ctx.Query("cancelAll") == "true" {
		count, err := h.uploadUseCase.CancelAll(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel sessions", "message": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"cancelled": count}})
		return
	}

	accepted, err := h.uploadUseCase.Cancel(ctx.Request.Context(), ctx.Param("sessionId"))
	if err != nil {
		respondUploadError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"cancelRequested": accepted}})
}

// Cleanup handles POST /api/uploads/cleanup
func (h *UploadHandler) Cleanup(ctx *gin.Context) {
	removed, err := h.uploadUseCase.Cleanup(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up sessions", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"removed": removed}})
}

// respondUploadError maps the error taxonomy onto HTTP statuses.
func respondUploadError(ctx *gin.Context, err error) {
	var authErr *model.AuthRequiredError
	switch {
	case errors.Is(err, model.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "message": err.Error()})
	case errors.Is(err, model.ErrConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Upload already in progress", "message": err.Error()})
	case errors.Is(err, model.ErrSessionNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, model.ErrVideoNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
	case errors.Is(err, model.ErrQueueFull):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Upload queue is full", "message": err.Error()})
	case errors.As(err, &authErr):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "authUrl": authErr.AuthURL})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Upload request failed", "message": err.Error()})
	}
}
