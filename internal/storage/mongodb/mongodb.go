// Package mongodb — документная реализация хранилищ пользователей, каталога и заказов.
// Включается настройкой storage.driver: mongo.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	productsCollection = "products"
	ordersCollection   = "orders"
)

// регистронезависимое сравнение строк
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// CreateIndexes создаёт индексы всех коллекций; повторный вызов безопасен
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.Collection(productsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "sub_category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create products indexes: %w", err)
	}

	_, err = db.Collection(ordersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create orders index: %w", err)
	}
	return nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}
