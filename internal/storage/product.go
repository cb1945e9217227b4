package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/linemk/clothing-shop/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы для работы с каталогом.
type ProductStorage interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetProductsByIDs возвращает найденные товары; отсутствующие id молча пропускаются.
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error)
	// ListProducts возвращает страницу каталога и общее число подходящих товаров.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, name, description, price, category, sub_category, sizes, bestseller, images, created_at, updated_at"

func scanProduct(row interface{ Scan(dest ...any) error }) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.SubCategory,
		pq.Array(&p.Sizes), &p.Bestseller, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (id, name, description, price, category, sub_category, sizes, bestseller, images)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.SubCategory,
		pq.Array(p.Sizes), p.Bestseller, pq.Array(p.Images),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1::uuid[])", pq.Array(strIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	where, args := productWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY " + productOrder(filter.Sort)
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows *sql.Rows) ([]*models.Product, error) {
	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// productWhere собирает условие WHERE и аргументы по фильтру каталога
func productWhere(f models.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Categories) > 0 {
		conds = append(conds, "lower(category) = ANY("+arg(pq.Array(lowerAll(f.Categories)))+")")
	}
	if len(f.SubCategories) > 0 {
		conds = append(conds, "lower(sub_category) = ANY("+arg(pq.Array(lowerAll(f.SubCategories)))+")")
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if f.Bestseller != nil {
		conds = append(conds, "bestseller = "+arg(*f.Bestseller))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// productOrder всегда заканчивается на id, чтобы страницы не пересекались при равных ключах
func productOrder(sort models.ProductSort) string {
	switch sort {
	case models.SortPriceAsc:
		return "price ASC, created_at DESC, id"
	case models.SortPriceDesc:
		return "price DESC, created_at DESC, id"
	case models.SortNameAsc:
		return "lower(name) ASC, id"
	case models.SortNameDesc:
		return "lower(name) DESC, id"
	default:
		return "created_at DESC, id"
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
