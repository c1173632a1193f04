package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const productColumns = `id, name, price, is_available, sizes, stock`

type productRepository struct {
	c scope
}

func scanProduct(row interface{ Scan(dest ...any) error }) (domain.Product, error) {
	var (
		product domain.Product
		sizes   []byte
	)
	if err := row.Scan(&product.ID, &product.Name, &product.Price, &product.IsAvailable, &sizes, &product.Stock); err != nil {
		return domain.Product{}, err
	}
	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &product.Sizes); err != nil {
			return domain.Product{}, fmt.Errorf("decode sizes of product %d: %w", product.ID, err)
		}
	}
	return product, nil
}

func encodeSizes(sizes map[string]int) (any, error) {
	if len(sizes) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(sizes)
	if err != nil {
		return nil, fmt.Errorf("encode sizes: %w", err)
	}
	return string(raw), nil
}

func (r productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	sizes, err := encodeSizes(product.Sizes)
	if err != nil {
		return domain.Product{}, err
	}

	if product.ID > 0 {
		_, err = r.c.q.ExecContext(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, product.ID, product.Name, product.Price, product.IsAvailable, sizes, product.Stock)
	} else {
		err = r.c.q.QueryRowContext(ctx, `
			INSERT INTO products (name, price, is_available, sizes, stock)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, product.Name, product.Price, product.IsAvailable, sizes, product.Stock).Scan(&product.ID)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", mapError(err))
	}
	return product, nil
}

func (r productRepository) get(ctx context.Context, id int64, suffix string) (domain.Product, error) {
	product, err := scanProduct(r.c.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", mapError(err))
	}
	return product, nil
}

func (r productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	return r.get(ctx, id, "")
}

func (r productRepository) GetForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r productRepository) Update(ctx context.Context, product domain.Product) error {
	sizes, err := encodeSizes(product.Sizes)
	if err != nil {
		return err
	}
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE products
		SET name = $1, price = $2, is_available = $3, sizes = $4, stock = $5
		WHERE id = $6
	`, product.Name, product.Price, product.IsAvailable, sizes, product.Stock, product.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r productRepository) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_available
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", mapError(err))
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

var _ domain.ProductRepository = productRepository{}
