package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getTopSellers = `
SELECT oi.menu_item_id,
       SUM(oi.quantity)::bigint AS total_quantity,
       SUM(oi.quantity * oi.price)::numeric AS total_revenue,
       m.name, m.category, m.price, m.image_url
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE o.status = 'Delivered'
GROUP BY oi.menu_item_id, m.name, m.category, m.price, m.image_url
ORDER BY total_quantity DESC, total_revenue DESC, oi.menu_item_id
LIMIT $1
`

// GetTopSellersRow aggregates delivered order lines per menu item. Revenue is
// computed from the snapshot prices on the lines, while name/category/price/
// image come from the current catalog row, so an item deleted from the
// catalog drops out of the ranking entirely (inner join).
type GetTopSellersRow struct {
	MenuItemID    uuid.UUID
	TotalQuantity int64
	TotalRevenue  pgtype.Numeric
	Name          string
	Category      string
	Price         pgtype.Numeric
	ImageUrl      pgtype.Text
}

func (q *Queries) GetTopSellers(ctx context.Context, limit int32) ([]GetTopSellersRow, error) {
	rows, err := q.db.Query(ctx, getTopSellers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GetTopSellersRow
	for rows.Next() {
		var r GetTopSellersRow
		if err := rows.Scan(
			&r.MenuItemID,
			&r.TotalQuantity,
			&r.TotalRevenue,
			&r.Name,
			&r.Category,
			&r.Price,
			&r.ImageUrl,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
