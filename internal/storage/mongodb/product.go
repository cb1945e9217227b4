package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	SubCategory string               `bson:"sub_category"`
	Sizes       []string             `bson:"sizes"`
	Bestseller  bool                 `bson:"bestseller"`
	Images      []string             `bson:"images"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func (d productDoc) model() (*models.Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", d.ID, err)
	}
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price of product %s: %w", d.ID, err)
	}
	return &models.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    d.Category,
		SubCategory: d.SubCategory,
		Sizes:       d.Sizes,
		Bestseller:  d.Bestseller,
		Images:      d.Images,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) storage.ProductStorage {
	return &productRepository{collection: db.Collection(productsCollection)}
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to convert price: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err = r.collection.InsertOne(ctx, productDoc{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Sizes:       p.Sizes,
		Bestseller:  p.Bestseller,
		Images:      p.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var doc productDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.model()
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": strIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return decodeProducts(ctx, cursor)
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	query, err := productQuery(filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().SetSort(productSort(filter.Sort))
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.Limit))
	}
	if filter.Sort == models.SortNameAsc || filter.Sort == models.SortNameDesc {
		opts.SetCollation(caseInsensitive)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]*models.Product, error) {
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	products := make([]*models.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// productQuery переводит фильтр каталога в запрос mongo
func productQuery(f models.ProductFilter) (bson.M, error) {
	query := bson.M{}

	if len(f.Categories) > 0 {
		query["category"] = bson.M{"$in": exactIgnoreCase(f.Categories)}
	}
	if len(f.SubCategories) > 0 {
		query["sub_category"] = bson.M{"$in": exactIgnoreCase(f.SubCategories)}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		v, err := toDecimal128(*f.MinPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid min price: %w", err)
		}
		price["$gte"] = v
	}
	if f.MaxPrice != nil {
		v, err := toDecimal128(*f.MaxPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid max price: %w", err)
		}
		price["$lte"] = v
	}
	if len(price) > 0 {
		query["price"] = price
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}
	}
	if f.Bestseller != nil {
		query["bestseller"] = *f.Bestseller
	}
	return query, nil
}

func exactIgnoreCase(values []string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(v)) + "$", Options: "i"})
	}
	return out
}

func productSort(sort models.ProductSort) bson.D {
	var keys bson.D
	switch sort {
	case models.SortPriceAsc:
		keys = bson.D{{Key: "price", Value: 1}, {Key: "created_at", Value: -1}}
	case models.SortPriceDesc:
		keys = bson.D{{Key: "price", Value: -1}, {Key: "created_at", Value: -1}}
	case models.SortNameAsc:
		keys = bson.D{{Key: "name", Value: 1}}
	case models.SortNameDesc:
		keys = bson.D{{Key: "name", Value: -1}}
	default:
		keys = bson.D{{Key: "created_at", Value: -1}}
	}
	return append(keys, bson.E{Key: "_id", Value: 1})
}
