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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderLineDoc struct {
	ID        string               `bson:"id"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Size      string               `bson:"size"`
	Quantity  int                  `bson:"quantity"`
	Image     string               `bson:"image"`
}

type addressDoc struct {
	Address string `bson:"address"`
	City    string `bson:"city"`
	Phone   string `bson:"phone"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"user_id"`
	UserName        string               `bson:"user_name"`
	Lines           []orderLineDoc       `bson:"lines"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	ShippingAddress addressDoc           `bson:"shipping_address"`
	Status          string               `bson:"status"`
	PaymentMethod   string               `bson:"payment_method"`
	Version         int                  `bson:"version"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func lineDocs(lines []models.OrderLine) ([]orderLineDoc, error) {
	docs := make([]orderLineDoc, 0, len(lines))
	for _, l := range lines {
		price, err := toDecimal128(l.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price of line %s: %w", l.ID, err)
		}
		docs = append(docs, orderLineDoc{
			ID:        l.ID.String(),
			ProductID: l.ProductID.String(),
			Name:      l.Name,
			Price:     price,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
	}
	return docs, nil
}

func (d orderDoc) model() (*models.Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id of order %s: %w", d.ID, err)
	}
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total of order %s: %w", d.ID, err)
	}

	lines := make([]models.OrderLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lineID, err := uuid.Parse(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid line id in order %s: %w", d.ID, err)
		}
		productID, err := uuid.Parse(l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id in order %s: %w", d.ID, err)
		}
		price, err := fromDecimal128(l.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid line price in order %s: %w", d.ID, err)
		}
		lines = append(lines, models.OrderLine{
			ID:        lineID,
			ProductID: productID,
			Name:      l.Name,
			Price:     price,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
	}

	return &models.Order{
		ID:          id,
		UserID:      userID,
		UserName:    d.UserName,
		Lines:       lines,
		TotalAmount: total,
		ShippingAddress: models.ShippingAddress{
			Address: d.ShippingAddress.Address,
			City:    d.ShippingAddress.City,
			Phone:   d.ShippingAddress.Phone,
		},
		Status:        models.OrderStatus(d.Status),
		PaymentMethod: d.PaymentMethod,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) storage.OrderStorage {
	return &orderRepository{collection: db.Collection(ordersCollection)}
}

func (r *orderRepository) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	lines, err := lineDocs(o.Lines)
	if err != nil {
		return nil, err
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid order total: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	o.Version = 1
	o.CreatedAt, o.UpdatedAt = now, now

	_, err = r.collection.InsertOne(ctx, orderDoc{
		ID:          o.ID.String(),
		UserID:      o.UserID.String(),
		UserName:    o.UserName,
		Lines:       lines,
		TotalAmount: total,
		ShippingAddress: addressDoc{
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			Phone:   o.ShippingAddress.Phone,
		},
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		Version:       o.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return o, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var doc orderDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.model()
}

func (r *orderRepository) ListOrders(ctx context.Context, userID *uuid.UUID) ([]*models.Order, error) {
	filter := bson.M{}
	if userID != nil {
		filter["user_id"] = userID.String()
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*models.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.model()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	update := bson.M{
		"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDoc
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return doc.model()
}

func (r *orderRepository) UpdateOrderLines(ctx context.Context, o *models.Order) error {
	lines, err := lineDocs(o.Lines)
	if err != nil {
		return err
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return fmt.Errorf("invalid order total: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": o.ID.String(), "version": o.Version}
	update := bson.M{
		"$set": bson.M{"lines": lines, "total_amount": total, "updated_at": now},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order lines: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrOrderConflict
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) DeleteOrderAtVersion(ctx context.Context, id uuid.UUID, version int) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String(), "version": version})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrOrderConflict
	}
	return nil
}
