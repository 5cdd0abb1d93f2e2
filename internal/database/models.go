package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type MenuItem struct {
	ID              uuid.UUID
	Name            string
	Description     pgtype.Text
	Category        string
	Price           pgtype.Numeric
	Ingredients     []string
	IsAvailable     bool
	PreparationTime pgtype.Int4
	ImageUrl        pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Order struct {
	ID           uuid.UUID
	OrderNumber  string
	CustomerName string
	TableNumber  int32
	Status       string
	TotalAmount  pgtype.Numeric
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OrderItem struct {
	ID         int64
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

type AdminUser struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	HashedPassword string
	CreatedAt      time.Time
}
