package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	roomsCollection       = "rooms"
	countersCollection    = "guild_counters"
	metricsCollection     = "daily_metrics"
	restartLogsCollection = "restart_logs"
)

// ConnectMongo opens a client and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// EnsureMongoIndexes creates the indexes the room engine queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		roomsCollection: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "scheduled_deletion_at", Value: 1}}},
		},
		metricsCollection: {
			{
				Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "day", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		restartLogsCollection: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "started_at", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

var activeFilter = bson.M{"deleted_at": nil}

type MongoRoomRepository struct {
	rooms    *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRoomRepository(db *mongo.Database) *MongoRoomRepository {
	return &MongoRoomRepository{
		rooms:    db.Collection(roomsCollection),
		counters: db.Collection(countersCollection),
	}
}

func (r *MongoRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	if _, err := r.rooms.InsertOne(ctx, room); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRoomExists
		}
		return err
	}
	return nil
}

func (r *MongoRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room domain.Room
	if err := r.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *MongoRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	res, err := r.rooms.ReplaceOne(ctx, bson.M{"_id": room.ID}, room)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MongoRoomRepository) SetScheduledDeletion(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filter := bson.M{"_id": id, "deleted_at": nil, "scheduled_deletion_at": nil}
	res, err := r.rooms.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"scheduled_deletion_at": at.UTC()}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := r.rooms.CountDocuments(ctx, bson.M{"_id": id, "deleted_at": nil})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrRoomNotFound
	}
	return false, nil
}

func (r *MongoRoomRepository) RecordPresence(ctx context.Context, id string, p PresenceUpdate) error {
	set := bson.M{
		"members":          nonNil(p.Members),
		"owner_candidates": nonNil(p.OwnerCandidates),
		"last_snapshot_at": p.At.UTC(),
	}
	update := bson.M{"$set": set}
	if p.Active {
		set["last_active_at"] = p.At.UTC()
		update["$unset"] = bson.M{"scheduled_deletion_at": ""}
	}
	return r.updateFields(ctx, id, update)
}

func (r *MongoRoomRepository) SetOwner(ctx context.Context, id, ownerID string, candidates []string) error {
	return r.updateFields(ctx, id, bson.M{"$set": bson.M{
		"owner_id":         ownerID,
		"owner_candidates": nonNil(candidates),
	}})
}

func (r *MongoRoomRepository) SetPermsVersion(ctx context.Context, id string, version int) error {
	return r.updateFields(ctx, id, bson.M{"$set": bson.M{"perms_version": version}})
}

func (r *MongoRoomRepository) UpdateModeration(ctx context.Context, room *domain.Room) error {
	if room == nil {
		return errors.New("room is nil")
	}
	set := bson.M{
		"locked":         room.Locked,
		"banned":         nonNil(room.Banned),
		"permitted":      nonNil(room.Permitted),
		"name":           room.Name,
		"rename_history": room.RenameHistory,
	}
	update := bson.M{"$set": set}
	if room.UserLimit != nil {
		set["user_limit"] = *room.UserLimit
	} else {
		update["$unset"] = bson.M{"user_limit": ""}
	}
	return r.updateFields(ctx, room.ID, update)
}

// updateFields applies a partial update to an active record.
func (r *MongoRoomRepository) updateFields(ctx context.Context, id string, update bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := r.rooms.UpdateOne(ctx, bson.M{"_id": id, "deleted_at": nil}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (r *MongoRoomRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := r.rooms.UpdateOne(ctx, bson.M{"_id": id, "deleted_at": nil}, bson.M{
		"$set":   bson.M{"deleted_at": at.UTC()},
		"$unset": bson.M{"scheduled_deletion_at": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MongoRoomRepository) HardDelete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := r.rooms.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MongoRoomRepository) find(ctx context.Context, filter any) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cur, err := r.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rooms := make([]*domain.Room, 0)
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *MongoRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	return r.find(ctx, activeFilter)
}

func (r *MongoRoomRepository) ListActiveByGuild(ctx context.Context, guildID string) ([]*domain.Room, error) {
	return r.find(ctx, bson.M{"guild_id": guildID, "deleted_at": nil})
}

func (r *MongoRoomRepository) ListAll(ctx context.Context) ([]*domain.Room, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoRoomRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Room, error) {
	return r.find(ctx, bson.M{
		"deleted_at":            nil,
		"scheduled_deletion_at": bson.M{"$lte": now.UTC()},
	})
}

func (r *MongoRoomRepository) CountActive(ctx context.Context, guildID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.rooms.CountDocuments(ctx, bson.M{"guild_id": guildID, "deleted_at": nil})
	return int(n), err
}

func (r *MongoRoomRepository) CountActiveByOwner(ctx context.Context, guildID, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.rooms.CountDocuments(ctx, bson.M{"guild_id": guildID, "owner_id": ownerID, "deleted_at": nil})
	return int(n), err
}

func (r *MongoRoomRepository) NextCounter(ctx context.Context, guildID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": guildID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

type MongoMetricsRepository struct {
	metrics *mongo.Collection
}

func NewMongoMetricsRepository(db *mongo.Database) *MongoMetricsRepository {
	return &MongoMetricsRepository{metrics: db.Collection(metricsCollection)}
}

func (r *MongoMetricsRepository) Inc(ctx context.Context, guildID, day string, field domain.MetricField, by int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !field.Valid() {
		return fmt.Errorf("unknown metric field %q", field)
	}

	_, err := r.metrics.UpdateOne(ctx,
		bson.M{"guild_id": guildID, "day": day},
		bson.M{"$inc": bson.M{string(field): by}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *MongoMetricsRepository) MaxPeak(ctx context.Context, guildID, day string, value int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := r.metrics.UpdateOne(ctx,
		bson.M{"guild_id": guildID, "day": day},
		bson.M{"$max": bson.M{"peak_concurrent": value}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *MongoMetricsRepository) Get(ctx context.Context, guildID, day string) (*domain.DailyMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.DailyMetrics
	if err := r.metrics.FindOne(ctx, bson.M{"guild_id": guildID, "day": day}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMetricsNotFound
		}
		return nil, err
	}
	return &m, nil
}

type MongoRestartLogRepository struct {
	logs *mongo.Collection
}

func NewMongoRestartLogRepository(db *mongo.Database) *MongoRestartLogRepository {
	return &MongoRestartLogRepository{logs: db.Collection(restartLogsCollection)}
}

func (r *MongoRestartLogRepository) Create(ctx context.Context, entry *domain.RestartLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := r.logs.InsertOne(ctx, entry)
	return err
}

func (r *MongoRestartLogRepository) ListByGuild(ctx context.Context, guildID string, limit int) ([]*domain.RestartLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.logs.Find(ctx, bson.M{"guild_id": guildID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	logs := make([]*domain.RestartLog, 0)
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
