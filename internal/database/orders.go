package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_name, table_number, status,
	total_amount, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerName,
		&o.TableNumber,
		&o.Status,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countOrders = `
SELECT count(*)
FROM orders
WHERE ($1::text IS NULL OR status = $1)
`

func (q *Queries) CountOrders(ctx context.Context, status pgtype.Text) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, status).Scan(&count)
	return count, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const createOrder = `
INSERT INTO orders (order_number, customer_name, table_number, total_amount)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber  string
	CustomerName string
	TableNumber  int32
	TotalAmount  pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerName,
		arg.TableNumber,
		arg.TotalAmount,
	))
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, menu_item_id, quantity, price
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.Price,
	).Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.Price)
	return i, err
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price,
       m.name, m.category, m.price AS current_price
FROM order_items oi
LEFT JOIN menu_items m ON m.id = oi.menu_item_id
WHERE oi.order_id = $1
ORDER BY oi.id
`

// ListOrderItemsByOrderRow is a line-item snapshot joined with the current
// catalog detail. The menu item columns are NULL when the item has since
// been deleted; the snapshot price and quantity are untouched either way.
type ListOrderItemsByOrderRow struct {
	ID           int64
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Quantity     int32
	Price        pgtype.Numeric
	Name         pgtype.Text
	Category     pgtype.Text
	CurrentPrice pgtype.Numeric
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var i ListOrderItemsByOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuItemID,
			&i.Quantity,
			&i.Price,
			&i.Name,
			&i.Category,
			&i.CurrentPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const getNextOrderSequence = `
SELECT COALESCE(MAX(substring(order_number FROM '[0-9]{4}$')::int), 0) + 1
FROM orders
WHERE order_number LIKE $1
`

// GetNextOrderSequence returns the next per-day sequence for the given
// order-number prefix pattern (e.g. "ORD-20260901-%"). Run inside the order
// creation transaction; the unique index on order_number catches the race
// between two transactions reading the same MAX.
func (q *Queries) GetNextOrderSequence(ctx context.Context, prefix string) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, getNextOrderSequence, prefix).Scan(&next)
	return next, err
}
