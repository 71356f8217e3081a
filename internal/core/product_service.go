package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductService manages the owner-scoped product catalog.
type ProductService interface {
	// CreateProduct creates a product. An empty SKU is replaced by a generated
	// SKU-XXXXXX code; a supplied SKU must be unused by this owner.
	CreateProduct(ctx context.Context, ownerID int, sku, name, description, unit string, price, taxRate decimal.Decimal) (*Product, error)
	GetProduct(ctx context.Context, ownerID, productID int) (*Product, error)
	GetProducts(ctx context.Context, ownerID int) ([]Product, error)
	UpdateProduct(ctx context.Context, ownerID, productID int, name, description, unit string, price, taxRate decimal.Decimal, isActive bool) (*Product, error)
	// DeleteProduct removes a product. Historical invoice items keep their
	// text snapshot; their product_id is nulled by the FK.
	DeleteProduct(ctx context.Context, ownerID, productID int) error
}

type productService struct {
	pool *pgxpool.Pool
}

func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

const productColumns = "id, owner_id, sku, name, description, unit, price, tax_rate, is_active, created_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.SKU, &p.Name, &p.Description, &p.Unit,
		&p.Price, &p.TaxRate, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productService) skuExists(ctx context.Context, ownerID int, sku string) (bool, error) {
	return rowExists(ctx, s.pool,
		"SELECT 1 FROM products WHERE owner_id = $1 AND sku = $2 LIMIT 1",
		ownerID, sku)
}

func (s *productService) CreateProduct(ctx context.Context, ownerID int, sku, name, description, unit string, price, taxRate decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	sku = strings.TrimSpace(sku)
	if name == "" {
		return nil, validationf("product name is required")
	}
	if price.IsNegative() {
		return nil, validationf("price cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, validationf("tax rate cannot be negative")
	}
	if unit == "" {
		unit = "pcs"
	}

	if sku == "" {
		generated, err := GenerateSKU(ctx, func(ctx context.Context, candidate string) (bool, error) {
			return s.skuExists(ctx, ownerID, candidate)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate SKU: %w", err)
		}
		sku = generated
	} else {
		taken, err := s.skuExists(ctx, ownerID, sku)
		if err != nil {
			return nil, fmt.Errorf("failed to check SKU: %w", err)
		}
		if taken {
			return nil, validationf("SKU %s is already used by another product", sku)
		}
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (owner_id, sku, name, description, unit, price, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		ownerID, sku, name, description, unit, price, taxRate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Msg: "SKU collision, please retry"}
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *productService) GetProduct(ctx context.Context, ownerID, productID int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND owner_id = $2",
		productID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product", productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return p, nil
}

func (s *productService) GetProducts(ctx context.Context, ownerID int) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE owner_id = $1 ORDER BY name",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *productService) UpdateProduct(ctx context.Context, ownerID, productID int, name, description, unit string, price, taxRate decimal.Decimal, isActive bool) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("product name is required")
	}
	if price.IsNegative() {
		return nil, validationf("price cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, validationf("tax rate cannot be negative")
	}
	if unit == "" {
		unit = "pcs"
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $1, description = $2, unit = $3, price = $4, tax_rate = $5, is_active = $6
		WHERE id = $7 AND owner_id = $8
		RETURNING `+productColumns,
		name, description, unit, price, taxRate, isActive, productID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product", productID)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	return p, nil
}

func (s *productService) DeleteProduct(ctx context.Context, ownerID, productID int) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM products WHERE id = $1 AND owner_id = $2", productID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("product", productID)
	}
	return nil
}
