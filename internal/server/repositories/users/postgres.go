package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	publicColumns = `id, email, name, password_reset_token, password_changed_at, created_at, updated_at`
	allColumns    = `id, email, name, password_reset_token, password_changed_at, created_at, updated_at, password_hash`
)

type PostgresRepository struct {
	db        dbx.DBTX
	forUpdate bool
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ForUpdate returns a repository whose reads lock the selected rows.
// Use it only with a transactional DBTX.
func (r *PostgresRepository) ForUpdate() *PostgresRepository {
	return &PostgresRepository{db: r.db, forUpdate: true}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	created := *user
	err := r.db.QueryRowContext(ctx, query,
		user.Email, nullString(user.Name), user.PasswordHash).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &created, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error) {
	columns := publicColumns
	if withPassword {
		columns = allColumns
	}

	query := `SELECT ` + columns + ` FROM users
		 WHERE email = $1` + r.lockClause()

	return r.queryUser(ctx, query, withPassword, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + publicColumns + ` FROM users
		 WHERE id = $1` + r.lockClause()

	return r.queryUser(ctx, query, false, id)
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users SET
		   email = $2,
		   name = $3,
		   password_hash = COALESCE(NULLIF($4, ''), password_hash),
		   password_reset_token = $5,
		   password_changed_at = $6,
		   updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	saved := *user
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, nullString(user.Name), user.PasswordHash,
		nullString(user.PasswordResetToken), nullTime(user),
	).Scan(&saved.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &saved, nil
}

func (r *PostgresRepository) lockClause() string {
	if r.forUpdate {
		return ` FOR UPDATE`
	}
	return ``
}

func (r *PostgresRepository) queryUser(ctx context.Context, query string, withPassword bool, arg any) (*models.User, error) {
	var (
		user        models.User
		name        sql.NullString
		resetToken  sql.NullString
		changedAt   sql.NullTime
		destination = []any{&user.ID, &user.Email, &name, &resetToken, &changedAt, &user.CreatedAt, &user.UpdatedAt}
	)
	if withPassword {
		destination = append(destination, &user.PasswordHash)
	}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(destination...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Name = name.String
	user.PasswordResetToken = resetToken.String
	if changedAt.Valid {
		t := changedAt.Time
		user.PasswordChangedAt = &t
	}

	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(u *models.User) sql.NullTime {
	if u.PasswordChangedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *u.PasswordChangedAt, Valid: true}
}
