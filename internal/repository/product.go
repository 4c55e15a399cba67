package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/wardrobe-api/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int, search, category string) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	SetImage(ctx context.Context, id uuid.UUID, imageURL, assetID string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO products (id, name, description, price, category, image_url, image_asset_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price,
		product.Category, product.ImageURL, product.ImageAssetID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	if err := insertSizes(ctx, tx, product.ID, product.Sizes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT id, name, description, price, category, image_url, image_asset_id, created_at, updated_at
			  FROM products WHERE id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.ImageURL, &p.ImageAssetID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if p.Sizes, err = r.loadSizes(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int, search, category string) ([]model.Product, int, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM products
			   WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			     AND ($2 = '' OR category = $2)`
	if err := r.pool.QueryRow(ctx, countQ, search, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT id, name, description, price, category, image_url, image_asset_id, created_at, updated_at
			  FROM products
			  WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			    AND ($2 = '' OR category = $2)
			  ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, search, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
			&p.ImageURL, &p.ImageAssetID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	for i := range products {
		if products[i].Sizes, err = r.loadSizes(ctx, products[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE products SET name=$2, description=$3, price=$4, category=$5, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err = tx.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.Category,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update product: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("clear sizes: %w", err)
	}
	if err := insertSizes(ctx, tx, product.ID, product.Sizes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) SetImage(ctx context.Context, id uuid.UUID, imageURL, assetID string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET image_url=$2, image_asset_id=$3, updated_at=NOW() WHERE id=$1`,
		id, imageURL, assetID,
	)
	if err != nil {
		return fmt.Errorf("set product image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) loadSizes(ctx context.Context, productID uuid.UUID) ([]model.SizeStock, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT size, quantity FROM product_sizes WHERE product_id = $1 ORDER BY position`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("load sizes: %w", err)
	}
	defer rows.Close()

	var sizes []model.SizeStock
	for rows.Next() {
		var s model.SizeStock
		if err := rows.Scan(&s.Size, &s.Quantity); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		sizes = append(sizes, s)
	}
	return sizes, nil
}

func insertSizes(ctx context.Context, tx pgx.Tx, productID uuid.UUID, sizes []model.SizeStock) error {
	for i, s := range sizes {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_sizes (product_id, size, quantity, position) VALUES ($1, $2, $3, $4)`,
			productID, s.Size, s.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("insert size %s: %w", s.Size, err)
		}
	}
	return nil
}
