package store

import (
	"context"
	"errors"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, name, email, phone, created_at, updated_at`

type pgCustomers struct{ db dbtx }

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q pgCustomers) FindByID(ctx context.Context, id string) (*Customer, error) {
	c, err := scanCustomer(q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CustomerNotFound(id)
		}
		return nil, apperrors.Unavailable("find customer", err)
	}
	return c, nil
}

func (q pgCustomers) FindAll(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name, id`)
	if err != nil {
		return nil, apperrors.Unavailable("find customers", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Customer, error) {
		c, err := scanCustomer(row)
		if err != nil {
			return Customer{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, apperrors.Unavailable("scan customers", err)
	}
	return list, nil
}

func (q pgCustomers) Create(ctx context.Context, c Customer) (*Customer, error) {
	c.ID = uuid.NewString()
	_, err := q.db.Exec(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, apperrors.Unavailable("create customer", err)
	}
	return &c, nil
}

func (q pgCustomers) Update(ctx context.Context, c Customer) (*Customer, error) {
	updated, err := scanCustomer(q.db.QueryRow(ctx,
		`UPDATE customers SET name = $2, email = $3, phone = $4, updated_at = $5
		 WHERE id = $1 RETURNING `+customerColumns,
		c.ID, c.Name, c.Email, c.Phone, c.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CustomerNotFound(c.ID)
		}
		return nil, apperrors.Unavailable("update customer", err)
	}
	return updated, nil
}

func (q pgCustomers) DeleteByID(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return apperrors.Unavailable("delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.CustomerNotFound(id)
	}
	return nil
}
