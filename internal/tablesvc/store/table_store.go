package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/buffet-bingo/internal/db"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type TableStore struct {
	coll *mongo.Collection
}

func NewTableStore(database *mongo.Database) *TableStore {
	return &TableStore{coll: database.Collection(db.TablesCollection)}
}

func (s *TableStore) CreateTable(ctx context.Context, t *models.Table) error {
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

func (s *TableStore) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var t models.Table
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &t, nil
}

func (s *TableStore) FindTablesByCode(ctx context.Context, code string) ([]*models.Table, error) {
	return s.find(ctx, bson.M{"short_code": code})
}

func (s *TableStore) ListTablesByHost(ctx context.Context, host string) ([]*models.Table, error) {
	return s.find(ctx, bson.M{"host": host})
}

func (s *TableStore) find(ctx context.Context, filter bson.M) ([]*models.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer cur.Close(ctx)

	var tables []*models.Table
	if err := cur.All(ctx, &tables); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}
	return tables, nil
}

func (s *TableStore) ClearShortCode(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"short_code": nil}})
}

// ClearStaleCodes releases the codes of every table created before the cutoff.
func (s *TableStore) ClearStaleCodes(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"short_code": bson.M{"$ne": nil}, "created_at": bson.M{"$lt": createdBefore}},
		bson.M{"$set": bson.M{"short_code": nil}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale codes: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *TableStore) SetStatus(ctx context.Context, id, status string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"status": status}})
}

func (s *TableStore) SetHost(ctx context.Context, id, host string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"host": host}})
}

func (s *TableStore) DeleteTable(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *TableStore) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update table %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
