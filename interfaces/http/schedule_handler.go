package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"media-ops/infrastructure/configuration"
	"media-ops/infrastructure/logger"
	"media-ops/usecase"

	"github.com/gin-gonic/gin"
)

type IScheduleHandler interface {
	ProcessScheduled(ctx *gin.Context)
}

type ScheduleHandler struct {
	sweepUseCase usecase.ISweepUsecase
}

func NewScheduleHandler(sweepUseCase usecase.ISweepUsecase) IScheduleHandler {
	return &ScheduleHandler{sweepUseCase: sweepUseCase}
}

// ProcessScheduled handles POST /scheduled-uploads/process. The route is
// outside the user auth group and is guarded by a shared secret so that an
// external scheduler can trigger a sweep.
func (h *ScheduleHandler) ProcessScheduled(ctx *gin.Context) {
	secret := configuration.C.Sweep.Secret
	if secret == "" {
		logger.GetLogger().Warn("Sweep secret is not configured; rejecting request")
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	presented := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.sweepUseCase.Sweep(ctx.Request.Context(), time.Now())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed", "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}
