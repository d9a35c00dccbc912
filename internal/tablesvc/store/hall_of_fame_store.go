package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/buffet-bingo/internal/db"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type HallOfFameStore struct {
	coll *mongo.Collection
}

func NewHallOfFameStore(database *mongo.Database) *HallOfFameStore {
	return &HallOfFameStore{coll: database.Collection(db.HallOfFameCollection)}
}

func (s *HallOfFameStore) CreateEntry(ctx context.Context, e *models.HallOfFameEntry) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": e.ID}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save hall of fame entry: %w", err)
	}
	return nil
}

func (s *HallOfFameStore) GetEntry(ctx context.Context, id string) (*models.HallOfFameEntry, error) {
	var e models.HallOfFameEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hall of fame entry: %w", err)
	}
	return &e, nil
}

func (s *HallOfFameStore) ListTopEntries(ctx context.Context, limit int64) ([]*models.HallOfFameEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "hall_of_fame_joined_at", Value: 1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list hall of fame: %w", err)
	}
	defer cur.Close(ctx)

	entries := []*models.HallOfFameEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode hall of fame: %w", err)
	}
	return entries, nil
}

func (s *HallOfFameStore) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete hall of fame entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *HallOfFameStore) DeleteEntriesByTable(ctx context.Context, tableID string) (int64, error) {
	return s.deleteMany(ctx, bson.M{"origin_table_id": tableID})
}

func (s *HallOfFameStore) DeleteEntriesByOrigin(ctx context.Context, tableID, userID string) (int64, error) {
	return s.deleteMany(ctx, bson.M{"origin_table_id": tableID, "user_id": userID})
}

func (s *HallOfFameStore) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete hall of fame entries: %w", err)
	}
	return res.DeletedCount, nil
}
