package server

import (
	"net/http"
	"time"

	httpHandler "media-ops/interfaces/http"
	"media-ops/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	videoHandler httpHandler.IVideoHandler,
	uploadHandler httpHandler.IUploadHandler,
	scheduleHandler httpHandler.IScheduleHandler,
	authHandler httpHandler.IAuthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth connect flow runs outside the user auth group: the callback is
	// hit by Google's redirect, which carries no bearer token.
	if authHandler != nil {
		router.GET("/auth/youtube", authHandler.GetAuthURL)
		router.GET("/auth/youtube/callback", authHandler.HandleCallback)
	}

	// Sweep trigger for external schedulers, guarded by a shared secret.
	if scheduleHandler != nil {
		router.POST("/scheduled-uploads/process", scheduleHandler.ProcessScheduled)
	}

	api := router.Group("api")
	api.Use(middleware.Auth())

	if authHandler != nil {
		api.GET("/youtube/oauth/status", authHandler.Status)
	}

	if videoHandler != nil {
		videos := api.Group("/videos")
		{
			videos.POST("", videoHandler.Create)
			videos.GET("", videoHandler.List)
			videos.GET("/:videoId", videoHandler.Get)
			videos.PATCH("/:videoId/schedule", videoHandler.Schedule)
		}
	}

	if uploadHandler != nil {
		uploads := api.Group("/uploads")
		{
			uploads.GET("", uploadHandler.ListSessions)
			uploads.POST("/cleanup", uploadHandler.Cleanup)
			uploads.POST("/:videoId", uploadHandler.StartUpload)
			uploads.GET("/:sessionId", uploadHandler.GetSession)
			uploads.DELETE("/:sessionId", uploadHandler.CancelSession)
		}
	}

	return router
}
