package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Rooms       *RoomController
	Settings    *SettingsController
	Maintenance *MaintenanceController
}

func SetupRouter(c Controllers, allowOrigins []string) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = allowOrigins
	if len(allowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:3000"}
	}
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	guilds := api.Group("/guilds/:guildID")
	if c.Settings != nil {
		guilds.GET("/settings", c.Settings.GetSettings)
		guilds.PUT("/settings", c.Settings.UpdateSettings)
		guilds.GET("/metrics/daily", c.Settings.DailyMetrics)
	}

	if c.Rooms != nil {
		guilds.GET("/rooms", c.Rooms.ListRooms)
		guilds.POST("/rooms", c.Rooms.CreateRoom)

		rooms := api.Group("/rooms/:roomID")
		rooms.GET("", c.Rooms.GetRoom)
		rooms.DELETE("", c.Rooms.DeleteRoom)
		rooms.POST("/reconcile", c.Rooms.ReconcilePermissions)
		rooms.POST("/claim", c.Rooms.Claim)
		rooms.POST("/promote", c.Rooms.Promote)
		rooms.POST("/lock", c.Rooms.Lock)
		rooms.POST("/unlock", c.Rooms.Unlock)
		rooms.POST("/permit", c.Rooms.Permit)
		rooms.POST("/ban", c.Rooms.Ban)
		rooms.POST("/unban", c.Rooms.Unban)
		rooms.POST("/limit", c.Rooms.SetLimit)
		rooms.POST("/rename", c.Rooms.Rename)
	}

	if c.Maintenance != nil {
		maintenance := api.Group("/maintenance")
		maintenance.POST("/idle", c.Maintenance.RunIdle)
		maintenance.POST("/hourly", c.Maintenance.RunHourly)
		maintenance.POST("/startup", c.Maintenance.RunStartup)
		guilds.GET("/restart-logs", c.Maintenance.RestartLogs)
	}

	return router
}
