package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (s *Store) initUserSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
  user_id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) CreateUser(ctx context.Context, rec UserRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM users WHERE email=?`, rec.Email).Scan(&existing)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO users(user_id, username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Username, rec.Email, rec.PasswordHash,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, username, email, password_hash, created_at FROM users WHERE email=?`,
		email,
	)
	return scanUserRow(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (UserRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id=?`,
		userID,
	)
	return scanUserRow(row)
}

func scanUserRow(row *sql.Row) (UserRecord, error) {
	var rec UserRecord
	var created string
	if err := row.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}
