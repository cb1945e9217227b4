package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	PassHash  []byte    `bson:"pass_hash"`
	Phone     string    `bson:"phone"`
	Address   string    `bson:"address"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d userDoc) model() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	return &models.User{
		ID:        id,
		Name:      d.Name,
		Email:     d.Email,
		PassHash:  d.PassHash,
		Phone:     d.Phone,
		Address:   d.Address,
		CreatedAt: d.CreatedAt,
	}, nil
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) storage.UserStorage {
	return &userRepository{collection: db.Collection(usersCollection)}
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var doc userDoc
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.model()
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(caseInsensitive))
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, userDoc{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		PassHash:  user.PassHash,
		Phone:     user.Phone,
		Address:   user.Address,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	update := bson.M{"$set": bson.M{
		"name":      user.Name,
		"pass_hash": user.PassHash,
		"phone":     user.Phone,
		"address":   user.Address,
	}}
	res, err := r.collection.UpdateByID(ctx, user.ID.String(), update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}
