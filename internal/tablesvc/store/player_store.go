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

// PlayerStore keeps one document per (table, uid) with _id "{tableId}/{uid}".
type PlayerStore struct {
	coll *mongo.Collection
}

func NewPlayerStore(database *mongo.Database) *PlayerStore {
	return &PlayerStore{coll: database.Collection(db.PlayersCollection)}
}

func playerKey(tableID, uid string) string {
	return tableID + "/" + uid
}

func (s *PlayerStore) GetPlayer(ctx context.Context, tableID, uid string) (*models.Player, error) {
	var p models.Player
	err := s.coll.FindOne(ctx, bson.M{"_id": playerKey(tableID, uid)}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *PlayerStore) ListPlayers(ctx context.Context, tableID string) ([]*models.Player, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uid", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"table_id": tableID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer cur.Close(ctx)

	players := []*models.Player{}
	if err := cur.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}
	return players, nil
}

func (s *PlayerStore) PutPlayer(ctx context.Context, p *models.Player) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": playerKey(p.TableID, p.UID)},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

func (s *PlayerStore) RenamePlayer(ctx context.Context, tableID, uid, name string) error {
	return s.update(ctx, tableID, uid, bson.M{"$set": bson.M{"name": name}})
}

func (s *PlayerStore) SetHallOfFame(ctx context.Context, tableID, uid string, in bool) error {
	return s.update(ctx, tableID, uid, bson.M{"$set": bson.M{"in_hall_of_fame": in}})
}

func (s *PlayerStore) DeletePlayer(ctx context.Context, tableID, uid string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": playerKey(tableID, uid)})
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PlayerStore) update(ctx context.Context, tableID, uid string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": playerKey(tableID, uid)}, update)
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
