package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tempvoice/internal/api/http/converter"
	"github.com/immxrtalbeast/tempvoice/internal/service"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

type SettingsController struct {
	settings service.SettingsInteractor
	metrics  service.MetricsInteractor
	log      *slog.Logger
}

func NewSettingsController(settings service.SettingsInteractor, metrics service.MetricsInteractor, log *slog.Logger) *SettingsController {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsController{settings: settings, metrics: metrics, log: log}
}

func (c *SettingsController) GetSettings(ctx *gin.Context) {
	settings, err := c.settings.Get(ctx.Request.Context(), ctx.Param("guildID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settings": converter.SettingsToApi(settings)})
}

func (c *SettingsController) UpdateSettings(ctx *gin.Context) {
	const op = "api.http.settings.update"

	var req converter.SettingsDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	guildID := ctx.Param("guildID")
	settings, err := converter.SettingsFromApi(guildID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	updated, err := c.settings.Update(ctx.Request.Context(), settings)
	if err != nil {
		c.log.Warn("settings update rejected", slog.String("op", op), slog.String("guild_id", guildID), sl.Err(err))
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settings": converter.SettingsToApi(updated)})
}

func (c *SettingsController) DailyMetrics(ctx *gin.Context) {
	m, err := c.metrics.ExportDaily(ctx.Request.Context(), ctx.Param("guildID"), ctx.Query("day"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"metrics": m})
}
