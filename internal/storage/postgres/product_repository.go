package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nohrer/app-microserv-devsecops/internal/domain"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, description, price, stock_quantity, is_active, created_at, updated_at, created_by, updated_by`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	return p, err
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE is_active ORDER BY id`, productColumns)

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) GetActive(ctx context.Context, id int64) (domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND is_active`, productColumns)

	p, err := scanProduct(r.queryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	stmt := fmt.Sprintf(`
INSERT INTO products (name, description, price, stock_quantity, is_active, created_at, updated_at, created_by, updated_by)
VALUES ($1, $2, $3, $4, TRUE, $5, $5, $6, $6)
RETURNING %s`, productColumns)

	created, err := scanProduct(r.queryRow(ctx, stmt,
		p.Name, p.Description, p.Price, p.StockQuantity, p.CreatedAt, p.CreatedBy,
	))
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *ProductRepository) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	stmt := fmt.Sprintf(`
UPDATE products
SET name = $2, description = $3, price = $4, stock_quantity = $5, updated_at = $6, updated_by = $7
WHERE id = $1 AND is_active
RETURNING %s`, productColumns)

	updated, err := scanProduct(r.queryRow(ctx, stmt,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.UpdatedAt, p.UpdatedBy,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *ProductRepository) Deactivate(ctx context.Context, id int64, updatedBy string) error {
	const stmt = `
UPDATE products
SET is_active = FALSE, updated_at = NOW(), updated_by = $2
WHERE id = $1 AND is_active`

	tag, err := r.exec(ctx, stmt, id, updatedBy)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// DecreaseStock atomically subtracts quantity when enough stock remains.
// The condition and the subtraction execute as one statement, so concurrent
// decrements on the same product can never both succeed when only one could
// be satisfied. Returns false (not applied) when stock was insufficient or
// the product is absent/inactive.
func (r *ProductRepository) DecreaseStock(ctx context.Context, id int64, quantity int) (bool, error) {
	const stmt = `
UPDATE products
SET stock_quantity = stock_quantity - $2, updated_at = NOW()
WHERE id = $1 AND is_active AND stock_quantity >= $2`

	tag, err := r.exec(ctx, stmt, id, quantity)
	if err != nil {
		return false, fmt.Errorf("decrease stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncreaseStock adds quantity unconditionally; used for restocking.
func (r *ProductRepository) IncreaseStock(ctx context.Context, id int64, quantity int) error {
	const stmt = `
UPDATE products
SET stock_quantity = stock_quantity + $2, updated_at = NOW()
WHERE id = $1 AND is_active`

	tag, err := r.exec(ctx, stmt, id, quantity)
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ProductRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
