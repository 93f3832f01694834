package http

import (
	"errors"
	"net/http"
	"strconv"

	"media-ops/domain/dto"
	"media-ops/domain/model"
	"media-ops/domain/repository"

	"github.com/gin-gonic/gin"
)

type IVideoHandler interface {
	Create(ctx *gin.Context)
	Get(ctx *gin.Context)
	List(ctx *gin.Context)
	Schedule(ctx *gin.Context)
}

type VideoHandler struct {
	videoRepository repository.IVideo
}

func NewVideoHandler(videoRepository repository.IVideo) IVideoHandler {
	return &VideoHandler{videoRepository: videoRepository}
}

// Create handles POST /api/videos
func (h *VideoHandler) Create(ctx *gin.Context) {
	var req dto.CreateVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "message": err.Error()})
		return
	}

	video := &model.Video{
		Title:           req.Title,
		Description:     req.Description,
		Tags:            req.Tags,
		Privacy:         req.Privacy,
		CategoryID:      req.CategoryID,
		SourceObjectRef: req.SourceObjectRef,
	}
	if err := h.videoRepository.Create(ctx.Request.Context(), video); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create video", "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": video})
}

// Get handles GET /api/videos/:videoId
func (h *VideoHandler) Get(ctx *gin.Context) {
	video, err := h.videoRepository.Get(ctx.Request.Context(), ctx.Param("videoId"))
	if err != nil {
		if errors.Is(err, model.ErrVideoNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch video", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": video})
}

// List handles GET /api/videos
func (h *VideoHandler) List(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	videos, err := h.videoRepository.List(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list videos", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": videos})
}

// Schedule handles PATCH /api/videos/:videoId/schedule
func (h *VideoHandler) Schedule(ctx *gin.Context) {
	var req dto.ScheduleVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "message": err.Error()})
		return
	}

	if err := h.videoRepository.Schedule(ctx.Request.Context(), ctx.Param("videoId"), req.ScheduledAt); err != nil {
		if errors.Is(err, model.ErrVideoNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule video", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Video scheduled"})
}
