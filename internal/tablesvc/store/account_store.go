package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/avvvet/buffet-bingo/internal/db"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type AccountStore struct {
	coll *mongo.Collection
}

func NewAccountStore(database *mongo.Database) *AccountStore {
	return &AccountStore{coll: database.Collection(db.AccountsCollection)}
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *AccountStore) FindAccountByCredential(ctx context.Context, provider, subject string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"provider": provider, "subject": subject})
}

func (s *AccountStore) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	err := s.coll.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (s *AccountStore) CreateAccount(ctx context.Context, a *models.Account) error {
	if _, err := s.coll.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *AccountStore) LinkCredential(ctx context.Context, id, provider, subject, displayName string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"provider":     provider,
		"subject":      subject,
		"display_name": displayName,
		"is_anonymous": false,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to link credential: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
