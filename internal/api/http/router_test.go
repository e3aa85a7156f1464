package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tempvoice/internal/api/http/converter"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/platform/memory"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guildID = "guild-1"

type apiEnv struct {
	router   *gin.Engine
	platform *memory.Platform
	rooms    *repository.InMemoryRoomRepository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := memory.MustNew()
	rooms := repository.NewInMemoryRoomRepository()
	cache := repository.NewInMemoryPresenceCache(nil)

	settings := service.NewSettingsService(repository.NewInMemorySettingsRepository(), nil, log)
	metrics := service.NewMetricsCollector(repository.NewInMemoryMetricsRepository(), log)
	presence := service.NewPresenceTracker(rooms, cache, gateway, service.DefaultPresenceTTL, log)
	lifecycle := service.NewLifecycleManager(gateway, rooms, settings, service.NewShardPlacer(gateway, log),
		service.NewCooldowns(nil), presence, metrics, log)
	ownership := service.NewOwnershipManager(rooms, settings, presence, metrics, lifecycle, log)
	reconciler := service.NewReconciler(gateway, rooms, repository.NewInMemoryRestartLogRepository(),
		settings, lifecycle, ownership, presence, metrics, log)

	router := SetupRouter(Controllers{
		Rooms:       NewRoomController(lifecycle, ownership, log),
		Settings:    NewSettingsController(settings, metrics, log),
		Maintenance: NewMaintenanceController(reconciler, log),
	}, nil)

	return &apiEnv{router: router, platform: gateway, rooms: rooms}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) enable(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/guilds/"+guildID+"/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Settings converter.SettingsDTO `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	resp.Settings.Enabled = true
	resp.Settings.AutoShard = true

	rec = e.do(t, http.MethodPut, "/api/guilds/"+guildID+"/settings", resp.Settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *apiEnv) createRoom(t *testing.T, owner string) converter.RoomResponse {
	t.Helper()
	e.platform.AddMember(guildID, platform.Member{ID: owner, Username: owner})
	rec := e.do(t, http.MethodPost, "/api/guilds/"+guildID+"/rooms", gin.H{"member_id": owner})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Room converter.RoomResponse `json:"room"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Room
}

func TestRouter_Healthz(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSettings_Get_Defaults(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Settings converter.SettingsDTO `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, guildID, resp.Settings.GuildID)
	assert.False(t, resp.Settings.Enabled)
	assert.Equal(t, int64(300), resp.Settings.IdleTimeoutSec)
	assert.Equal(t, int64(30000), resp.Settings.CreateCooldownMs)
}

func TestSettings_Update_Invalid(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodPut, "/api/guilds/"+guildID+"/settings", gin.H{
		"enabled":      true,
		"max_shards":   0,
		"name_pattern": "room",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_shards")
}

func TestSettings_Update_NonBooleanOverwrite(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodPut, "/api/guilds/"+guildID+"/settings", gin.H{
		"max_shards":   1,
		"name_pattern": "room",
		"role_templates": []gin.H{
			{"role_id": "r1", "overwrites": gin.H{"speak": "yes"}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a boolean")
}

func TestRooms_Create_Disabled(t *testing.T) {
	env := newAPIEnv(t)
	env.platform.AddMember(guildID, platform.Member{ID: "alice", Username: "alice"})

	rec := env.do(t, http.MethodPost, "/api/guilds/"+guildID+"/rooms", gin.H{"member_id": "alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRooms_Create_MissingBody(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodPost, "/api/guilds/"+guildID+"/rooms", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRooms_CreateListGetDelete(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	room := env.createRoom(t, "alice")
	assert.Equal(t, "alice", room.OwnerID)
	assert.Equal(t, "alice's room", room.Name)

	rec := env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rooms []converter.RoomResponse `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 1)

	rec = env.do(t, http.MethodGet, "/api/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRooms_Create_Cooldown(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	room := env.createRoom(t, "alice")

	rec := env.do(t, http.MethodDelete, "/api/rooms/"+room.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/guilds/"+guildID+"/rooms", gin.H{"member_id": "alice"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRooms_Unknown(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodPost, "/api/rooms/nope/lock", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRooms_Moderation(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	room := env.createRoom(t, "alice")
	base := "/api/rooms/" + room.ID

	rec := env.do(t, http.MethodPost, base+"/lock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locked":true`)

	rec = env.do(t, http.MethodPost, base+"/permit", gin.H{"member_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"permitted":["bob"]`)

	rec = env.do(t, http.MethodPost, base+"/limit", gin.H{"limit": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_limit":5`)

	rec = env.do(t, http.MethodPost, base+"/limit", gin.H{"limit": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/rename", gin.H{"actor_id": "alice", "name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/rename", gin.H{"actor_id": "alice", "name": "late night"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"late night"`)

	rec = env.do(t, http.MethodPost, base+"/unlock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locked":false`)
}

func TestRooms_Claim(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	room := env.createRoom(t, "alice")
	base := "/api/rooms/" + room.ID

	env.platform.AddMember(guildID, platform.Member{ID: "bob", Username: "bob"})
	env.platform.Join(guildID, "alice", room.ID)
	env.platform.Join(guildID, "bob", room.ID)

	rec := env.do(t, http.MethodPost, base+"/claim", gin.H{"member_id": "bob"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.platform.Leave(guildID, "alice")
	rec = env.do(t, http.MethodPost, base+"/claim", gin.H{"member_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"owner_id":"bob"`)
}

func TestMaintenance_Idle(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	env.createRoom(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/maintenance/idle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"idle"`)
	assert.Contains(t, rec.Body.String(), `"deletions"`)
}

func TestMaintenance_RestartLogs(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	env.createRoom(t, "alice")

	for range 2 {
		rec := env.do(t, http.MethodPost, "/api/maintenance/startup", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/restart-logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Logs []domain.RestartLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Logs, 2)
	assert.Equal(t, guildID, body.Logs[0].GuildID)

	rec = env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/restart-logs?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Logs, 1)

	rec = env.do(t, http.MethodGet, "/api/guilds/other/restart-logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Logs)

	rec = env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/restart-logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/restart-logs?limit=1000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics_Daily(t *testing.T) {
	env := newAPIEnv(t)
	env.enable(t)
	env.createRoom(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/metrics/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/guilds/"+guildID+"/metrics/daily?day=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}
