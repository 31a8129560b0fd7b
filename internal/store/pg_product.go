package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price::text, category, quantity, available, created_at, updated_at`

type pgProducts struct{ db dbtx }

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price, category string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &category, &p.Quantity, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Category = ProductCategory(category)
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	return &p, nil
}

func (q pgProducts) FindByID(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ProductNotFound(id)
		}
		return nil, apperrors.Unavailable("find product", err)
	}
	return p, nil
}

func (q pgProducts) FindAll(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var where []string
	var args []any
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		where = append(where, fmt.Sprintf("available = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, foldLike(filter.Search))
		where = append(where, containsFolded("name", fmt.Sprintf("$%d", len(args))))
	}
	sql := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY name, id`

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.Unavailable("find products", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		p, err := scanProduct(row)
		if err != nil {
			return Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, apperrors.Unavailable("scan products", err)
	}
	return list, nil
}

func (q pgProducts) Create(ctx context.Context, p Product) (*Product, error) {
	p.ID = uuid.NewString()
	_, err := q.db.Exec(ctx,
		`INSERT INTO products (id, name, description, price, category, quantity, available, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.Price.String(), string(p.Category), p.Quantity, p.Available, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, apperrors.Unavailable("create product", err)
	}
	return &p, nil
}

func (q pgProducts) Update(ctx context.Context, p Product) (*Product, error) {
	return q.returning(ctx, p.ID, "update product",
		`UPDATE products SET name = $2, description = $3, price = $4::numeric, category = $5, available = $6, updated_at = $7
		 WHERE id = $1 RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price.String(), string(p.Category), p.Available, p.UpdatedAt)
}

func (q pgProducts) SetStock(ctx context.Context, id string, quantity int) (*Product, error) {
	return q.returning(ctx, id, "set stock",
		`UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1 RETURNING `+productColumns,
		id, quantity)
}

func (q pgProducts) DecrementStock(ctx context.Context, id string, qty int) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET quantity = quantity - $2, updated_at = now() WHERE id = $1 AND quantity >= $2`,
		id, qty)
	if err != nil {
		return apperrors.Unavailable("decrement stock", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// either the product is gone or the stock is short; read it back to tell which
	p, err := q.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return &apperrors.InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Quantity, Requested: qty}
}

func (q pgProducts) IncrementStock(ctx context.Context, id string, qty int) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id = $1`, id, qty)
	if err != nil {
		return apperrors.Unavailable("increment stock", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ProductNotFound(id)
	}
	return nil
}

func (q pgProducts) DeleteByID(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return apperrors.Unavailable("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ProductNotFound(id)
	}
	return nil
}

func (q pgProducts) returning(ctx context.Context, id, op, sql string, args ...any) (*Product, error) {
	p, err := scanProduct(q.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ProductNotFound(id)
		}
		return nil, apperrors.Unavailable(op, err)
	}
	return p, nil
}

// containsFolded renders a case-insensitive substring match of col against the pattern placeholder,
// which must hold a foldLike value. pg_c_utf8 lowercases with Unicode simple case mapping,
// the same mapping strings.ToLower applies, so the in-memory evaluator agrees on non-ASCII text.
func containsFolded(col, placeholder string) string {
	return fmt.Sprintf(`lower(%s COLLATE pg_c_utf8) LIKE '%%' || %s || '%%' ESCAPE '\'`, col, placeholder)
}

// foldLike lowercases s and escapes its LIKE wildcards.
func foldLike(s string) string {
	return escapeLike(strings.ToLower(s))
}

// escapeLike escapes LIKE wildcards so s matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
