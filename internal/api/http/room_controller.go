package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tempvoice/internal/api/http/converter"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/service"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

type RoomController struct {
	rooms     service.RoomInteractor
	ownership service.OwnershipInteractor
	log       *slog.Logger
}

func NewRoomController(rooms service.RoomInteractor, ownership service.OwnershipInteractor, log *slog.Logger) *RoomController {
	if log == nil {
		log = slog.Default()
	}
	return &RoomController{rooms: rooms, ownership: ownership, log: log}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type request struct {
		MemberID string `json:"member_id" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	room, err := c.rooms.CreateTempVC(ctx.Request.Context(), ctx.Param("guildID"), req.MemberID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	rooms, err := c.rooms.ListRooms(ctx.Request.Context(), ctx.Param("guildID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": converter.RoomsToApi(rooms)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	room, err := c.rooms.GetRoom(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) DeleteRoom(ctx *gin.Context) {
	const op = "api.http.room.delete"

	roomID := ctx.Param("roomID")
	reason := ctx.DefaultQuery("reason", "operator")
	if err := c.rooms.DeleteTempVC(ctx.Request.Context(), roomID, reason); err != nil {
		c.log.Warn("delete failed", slog.String("op", op), slog.String("room_id", roomID), sl.Err(err))
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *RoomController) ReconcilePermissions(ctx *gin.Context) {
	if err := c.rooms.ReconcilePermissions(ctx.Request.Context(), "", ctx.Param("roomID")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

type memberRequest struct {
	MemberID string `json:"member_id" binding:"required"`
}

func (c *RoomController) Claim(ctx *gin.Context) {
	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.ownership.Claim(ctx.Request.Context(), ctx.Param("roomID"), req.MemberID))
}

func (c *RoomController) Promote(ctx *gin.Context) {
	type request struct {
		ActorID  string `json:"actor_id" binding:"required"`
		TargetID string `json:"target_id" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.ownership.Promote(ctx.Request.Context(), ctx.Param("roomID"), req.ActorID, req.TargetID))
}

func (c *RoomController) Lock(ctx *gin.Context) {
	c.respondRoom(ctx)(c.rooms.Lock(ctx.Request.Context(), ctx.Param("roomID")))
}

func (c *RoomController) Unlock(ctx *gin.Context) {
	c.respondRoom(ctx)(c.rooms.Unlock(ctx.Request.Context(), ctx.Param("roomID")))
}

func (c *RoomController) Permit(ctx *gin.Context) {
	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.rooms.Permit(ctx.Request.Context(), ctx.Param("roomID"), req.MemberID))
}

func (c *RoomController) Ban(ctx *gin.Context) {
	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.rooms.Ban(ctx.Request.Context(), ctx.Param("roomID"), req.MemberID))
}

func (c *RoomController) Unban(ctx *gin.Context) {
	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.rooms.Unban(ctx.Request.Context(), ctx.Param("roomID"), req.MemberID))
}

func (c *RoomController) SetLimit(ctx *gin.Context) {
	type request struct {
		Limit *int `json:"limit" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.rooms.SetUserLimit(ctx.Request.Context(), ctx.Param("roomID"), *req.Limit))
}

func (c *RoomController) Rename(ctx *gin.Context) {
	type request struct {
		ActorID string `json:"actor_id" binding:"required"`
		Name    string `json:"name" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.respondRoom(ctx)(c.rooms.Rename(ctx.Request.Context(), ctx.Param("roomID"), req.ActorID, req.Name))
}

func (c *RoomController) respondRoom(ctx *gin.Context) func(*domain.Room, error) {
	return func(room *domain.Room, err error) {
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
	}
}
