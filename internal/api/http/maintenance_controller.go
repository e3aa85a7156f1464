package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/service"
)

type MaintenanceController struct {
	reconciler service.MaintenanceInteractor
	log        *slog.Logger
}

func NewMaintenanceController(reconciler service.MaintenanceInteractor, log *slog.Logger) *MaintenanceController {
	if log == nil {
		log = slog.Default()
	}
	return &MaintenanceController{reconciler: reconciler, log: log}
}

// RunIdle runs the idle sweep followed by due deletions, the same pair the
// scheduler fires.
func (c *MaintenanceController) RunIdle(ctx *gin.Context) {
	idle, err := c.reconciler.RunIdleChecks(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	deletions, err := c.reconciler.ProcessScheduledDeletions(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"idle": idle, "deletions": deletions})
}

func (c *MaintenanceController) RunHourly(ctx *gin.Context) {
	run(ctx, c.reconciler.RunHourlyIntegrityScan)
}

func (c *MaintenanceController) RunStartup(ctx *gin.Context) {
	run(ctx, c.reconciler.IntegrityStartupScan)
}

// RestartLogs lists the newest startup sweep logs of a guild.
func (c *MaintenanceController) RestartLogs(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(ctx, fmt.Errorf("%w: limit %q", domain.ErrInvalidInput, raw))
			return
		}
		limit = n
	}
	logs, err := c.reconciler.RestartLogs(ctx.Request.Context(), ctx.Param("guildID"), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}

func run[T any](ctx *gin.Context, fn func(context.Context) (T, error)) {
	summary, err := fn(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"summary": summary})
}
