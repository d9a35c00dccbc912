package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TablesCollection     = "tables"
	PlayersCollection    = "players"
	HallOfFameCollection = "hall_of_fame"
	VisitsCollection     = "visited_tables"
	AccountsCollection   = "accounts"
)

// ConnectToDB connects to the database named in the path of mongoURI.
// Closing the returned func disconnects the client.
func ConnectToDB(mongoURI string) (*mongo.Database, func(), error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("parse mongodb uri: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = "buffet_bingo"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Infof("connected to mongodb database %s", dbName)

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Errorf("[db.ConnectToDB] disconnect: %s", err)
		}
	}
	return client.Database(dbName), closeFn, nil
}

// EnsureIndexes creates the lookup indexes the stores query by.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		TablesCollection: {
			{Keys: bson.D{{Key: "short_code", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "host", Value: 1}}},
		},
		PlayersCollection: {
			{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		HallOfFameCollection: {
			{Keys: bson.D{{Key: "score", Value: -1}, {Key: "hall_of_fame_joined_at", Value: 1}}},
			{Keys: bson.D{{Key: "origin_table_id", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		VisitsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "table_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AccountsCollection: {
			{
				Keys: bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"provider": bson.M{"$exists": true}}),
			},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
