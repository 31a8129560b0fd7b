package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, seq, customer_id, customer_name, lines, total::text, status, notes, created_at, updated_at`

type pgOrders struct{ db dbtx }

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var lines []byte
	var total, status string
	if err := row.Scan(&o.ID, &o.Seq, &o.Customer.ID, &o.Customer.Name, &lines, &total, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("invalid order lines: %w", err)
	}
	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid order total %q: %w", total, err)
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func (q pgOrders) Insert(ctx context.Context, o Order) (*Order, error) {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode order lines: %w", err)
	}
	inserted, err := scanOrder(q.db.QueryRow(ctx,
		`INSERT INTO orders (id, customer_id, customer_name, lines, total, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::numeric, $6, $7, $8, $9)
		 RETURNING `+orderColumns,
		uuid.NewString(), o.Customer.ID, o.Customer.Name, string(lines), o.Total.String(), string(o.Status), o.Notes, o.CreatedAt, o.UpdatedAt))
	if err != nil {
		return nil, apperrors.Unavailable("insert order", err)
	}
	return inserted, nil
}

func (q pgOrders) FindByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.OrderNotFound(id)
		}
		return nil, apperrors.Unavailable("find order", err)
	}
	return o, nil
}

func (q pgOrders) Find(ctx context.Context, query Query) ([]Order, error) {
	where, args, err := buildOrderWhere(query.Where)
	if err != nil {
		return nil, err
	}
	orderBy, err := buildOrderBy(query.Sort)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders`+where+orderBy, args...)
	if err != nil {
		return nil, apperrors.Unavailable("find orders", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return Order{}, err
		}
		return *o, nil
	})
	if err != nil {
		return nil, apperrors.Unavailable("scan orders", err)
	}
	return list, nil
}

func (q pgOrders) UpdateStatus(ctx context.Context, id string, next, expected OrderStatus) (*Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3 RETURNING `+orderColumns,
		id, string(next), string(expected)))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Unavailable("update order status", err)
	}
	// no row: the order is gone or its status moved under us
	if _, err := q.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrConflict
}

var orderColumnsByField = map[Field]string{
	FieldID:           "id",
	FieldStatus:       "status",
	FieldCustomerID:   "customer_id",
	FieldCustomerName: "customer_name",
	FieldCreatedAt:    "created_at",
	FieldTotal:        "total",
	FieldSeq:          "seq",
}

func orderColumn(f Field) (string, error) {
	col, ok := orderColumnsByField[f]
	if !ok {
		return "", fmt.Errorf("%w: unknown order field %q", apperrors.ErrInvalidInput, f)
	}
	return col, nil
}

// sqlBuilder accumulates positional arguments while rendering conditions.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	switch val := v.(type) {
	case decimal.Decimal:
		b.args = append(b.args, val.String())
		return fmt.Sprintf("$%d::numeric", len(b.args))
	case OrderStatus:
		v = string(val)
	}
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) condition(c Condition) (string, error) {
	if len(c.Or) > 0 {
		parts := make([]string, 0, len(c.Or))
		for _, sub := range c.Or {
			part, err := b.condition(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}
	col, err := orderColumn(c.Field)
	if err != nil {
		return "", err
	}
	switch c.Op {
	case OpEq:
		return col + " = " + b.arg(c.Value), nil
	case OpGte:
		return col + " >= " + b.arg(c.Value), nil
	case OpLte:
		return col + " <= " + b.arg(c.Value), nil
	case OpIContains:
		return containsFolded(col, b.arg(foldLike(toString(c.Value)))), nil
	}
	return "", fmt.Errorf("%w: unknown operator %d", apperrors.ErrInvalidInput, c.Op)
}

func buildOrderWhere(conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	var b sqlBuilder
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		part, err := b.condition(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, part)
	}
	return " WHERE " + strings.Join(parts, " AND "), b.args, nil
}

func buildOrderBy(s Sort) (string, error) {
	if s.Field == "" {
		s = DefaultSort
	}
	col, err := orderColumn(s.Field)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	// seq keeps insertion order among equal keys
	return fmt.Sprintf(" ORDER BY %s %s, seq ASC", col, dir), nil
}
