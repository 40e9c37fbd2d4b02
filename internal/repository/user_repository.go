package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/account-api/internal/model"
)

// usersSchema creates the users table.  Session tokens are kept as a JSON
// array next to the record so a user is always read and written as one
// document, matching the other backends.
const usersSchema = `CREATE TABLE IF NOT EXISTS users (
	id            CHAR(36)     NOT NULL PRIMARY KEY,
	name          VARCHAR(255) NOT NULL,
	email         VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	age           INT          NOT NULL DEFAULT 0,
	avatar        MEDIUMBLOB   NULL,
	tokens        JSON         NOT NULL,
	created_at    DATETIME(3)  NOT NULL,
	updated_at    DATETIME(3)  NOT NULL,
	UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const userColumns = "id,name,email,password_hash,age,avatar,tokens,created_at,updated_at"

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// UserRepo stores users in MySQL.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// EnsureSchema creates the users table when it does not exist yet.
func (r *UserRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, usersSchema)
	return err
}

// Insert writes a new user row.  CreatedAt and UpdatedAt are stamped here.
func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	now := time.Now().UTC().Truncate(time.Millisecond)
	tokens, err := encodeTokens(u.Tokens)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Age, u.Avatar, tokens, now, now)
	if err != nil {
		return mapMySQLError(err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u      model.User
		tokens []byte
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Age, &u.Avatar, &tokens, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &u.Tokens); err != nil {
			return nil, fmt.Errorf("decode tokens: %w", err)
		}
	}
	return &u, nil
}

// Update overwrites every mutable column of the user row.  The DSN opens
// connections with clientFoundRows so RowsAffected counts matched rows and
// an unchanged row is not mistaken for a missing one.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	now := time.Now().UTC().Truncate(time.Millisecond)
	tokens, err := encodeTokens(u.Tokens)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, password_hash=?, age=?, avatar=?, tokens=?, updated_at=? WHERE id=?",
		u.Name, u.Email, u.PasswordHash, u.Age, u.Avatar, tokens, now, u.ID)
	if err != nil {
		return mapMySQLError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	u.UpdatedAt = now
	return nil
}

// Delete removes the user row.  Deleting an unknown id yields ErrNotFound.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeTokens(tokens []model.SessionToken) ([]byte, error) {
	if tokens == nil {
		tokens = []model.SessionToken{}
	}
	b, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("encode tokens: %w", err)
	}
	return b, nil
}

func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrEmailExists
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
