package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, category, price, ingredients,
	is_available, preparation_time, image_url, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.Ingredients,
		&i.IsAvailable,
		&i.PreparationTime,
		&i.ImageUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE ($1::text IS NULL OR category = $1)
  AND ($2::boolean IS NULL OR is_available = $2)
  AND ($3::numeric IS NULL OR price >= $3)
  AND ($4::numeric IS NULL OR price <= $4)
ORDER BY created_at DESC
`

type ListMenuItemsParams struct {
	Category    pgtype.Text
	IsAvailable pgtype.Bool
	MinPrice    pgtype.Numeric
	MaxPrice    pgtype.Numeric
}

// ListMenuItems returns all items matching the supplied filters, newest first.
// Invalid (NULL) params act as absent filters.
func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.Category, arg.IsAvailable, arg.MinPrice, arg.MaxPrice)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

const searchMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE search_tsv @@ plainto_tsquery('english', $1)
ORDER BY ts_rank(search_tsv, plainto_tsquery('english', $1)) DESC, created_at DESC
`

// SearchMenuItems ranks items by full-text relevance over name, description
// and ingredients. Callers are expected to reject empty queries first.
func (q *Queries) SearchMenuItems(ctx context.Context, query string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, searchMenuItems, query)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

const getMenuItem = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const createMenuItem = `
INSERT INTO menu_items (name, description, category, price, ingredients,
	is_available, preparation_time, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name            string
	Description     pgtype.Text
	Category        string
	Price           pgtype.Numeric
	Ingredients     []string
	IsAvailable     bool
	PreparationTime pgtype.Int4
	ImageUrl        pgtype.Text
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.Ingredients,
		arg.IsAvailable,
		arg.PreparationTime,
		arg.ImageUrl,
	))
}

const updateMenuItem = `
UPDATE menu_items
SET name = $2,
    description = $3,
    category = $4,
    price = $5,
    ingredients = $6,
    is_available = $7,
    preparation_time = $8,
    image_url = $9,
    updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID              uuid.UUID
	Name            string
	Description     pgtype.Text
	Category        string
	Price           pgtype.Numeric
	Ingredients     []string
	IsAvailable     bool
	PreparationTime pgtype.Int4
	ImageUrl        pgtype.Text
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.Ingredients,
		arg.IsAvailable,
		arg.PreparationTime,
		arg.ImageUrl,
	))
}

const deleteMenuItem = `
DELETE FROM menu_items
WHERE id = $1
RETURNING id
`

// DeleteMenuItem removes an item from the catalog. Historical order lines
// keep their price snapshots; nothing cascades into orders.
func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteMenuItem, id).Scan(&deleted)
	return deleted, err
}

const toggleMenuItemAvailability = `
UPDATE menu_items
SET is_available = NOT is_available,
    updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

// ToggleMenuItemAvailability flips the availability flag in a single atomic
// update, so concurrent toggles serialize in the database instead of racing
// through a read-modify-write.
func (q *Queries) ToggleMenuItemAvailability(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, toggleMenuItemAvailability, id))
}
