package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const adminColumns = `id, email, full_name, hashed_password, created_at`

func scanAdmin(row pgx.Row) (AdminUser, error) {
	var a AdminUser
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.HashedPassword, &a.CreatedAt)
	return a, err
}

const getAdminByEmail = `
SELECT ` + adminColumns + `
FROM admin_users
WHERE email = $1
`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (AdminUser, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByEmail, email))
}

const getAdminByID = `
SELECT ` + adminColumns + `
FROM admin_users
WHERE id = $1
`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (AdminUser, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByID, id))
}
