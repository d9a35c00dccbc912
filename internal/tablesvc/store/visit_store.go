package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/buffet-bingo/internal/db"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type VisitStore struct {
	coll *mongo.Collection
}

func NewVisitStore(database *mongo.Database) *VisitStore {
	return &VisitStore{coll: database.Collection(db.VisitsCollection)}
}

func (s *VisitStore) RecordVisit(ctx context.Context, v *models.VisitedTable) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": v.UserID, "table_id": v.TableID},
		bson.M{"$set": bson.M{"joined_at": v.JoinedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (s *VisitStore) ListVisits(ctx context.Context, userID string) ([]*models.VisitedTable, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer cur.Close(ctx)

	var visits []*models.VisitedTable
	if err := cur.All(ctx, &visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits: %w", err)
	}
	return visits, nil
}
