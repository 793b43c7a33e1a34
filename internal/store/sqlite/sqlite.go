package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/messagely/messagely-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// schema holds the full table layout. Foreign keys on usernames require the
// UNIQUE constraint on users.username.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	phone         TEXT NOT NULL,
	joined_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login_at DATETIME
);

CREATE TABLE IF NOT EXISTS messages (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	from_username TEXT NOT NULL REFERENCES users(username),
	to_username   TEXT NOT NULL REFERENCES users(username),
	body          TEXT NOT NULL,
	sent_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	read_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_username);
CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_username);
`

// ApplySchema creates the tables if they do not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password and profile fields.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, firstName, lastName, phone string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, first_name, last_name, phone)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, username, passwordHash, firstName, lastName, phone)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, first_name, last_name, phone, joined_at, last_login_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	var lastLoginAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinedAt,
		&lastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return &user, nil
}

// TouchLastLogin stamps the user's last_login_at with the current time.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, username string) error {
	query := `UPDATE users SET last_login_at = ? WHERE username = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ==== MessageStore implementation ====

// CreateMessage inserts a new message and returns it with id and sent_at set.
func (s *SQLiteStore) CreateMessage(ctx context.Context, fromUsername, toUsername, body string) (*store.Message, error) {
	sentAt := time.Now().UTC()
	query := `
		INSERT INTO messages (from_username, to_username, body, sent_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, fromUsername, toUsername, body, sentAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Message{
		ID:           id,
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
		SentAt:       sentAt,
	}, nil
}

// GetMessage retrieves a message with sender and recipient detail joined in.
// A missing message short-circuits before the user lookups.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.MessageDetail, error) {
	query := `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages
		WHERE id = ?
	`
	var detail store.MessageDetail
	var fromUsername, toUsername string
	var readAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&fromUsername,
		&toUsername,
		&detail.Body,
		&detail.SentAt,
		&readAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found: %w", err)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	if readAt.Valid {
		detail.ReadAt = &readAt.Time
	}

	fromUser, err := s.getUserDetail(ctx, fromUsername)
	if err != nil {
		return nil, fmt.Errorf("join from_user: %w", err)
	}
	toUser, err := s.getUserDetail(ctx, toUsername)
	if err != nil {
		return nil, fmt.Errorf("join to_user: %w", err)
	}

	detail.FromUser = *fromUser
	detail.ToUser = *toUser

	return &detail, nil
}

// MarkMessageRead sets read_at to the current time. Re-marking an already read
// message moves the timestamp forward.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id int64) (*store.Message, error) {
	readAt := time.Now().UTC()
	query := `UPDATE messages SET read_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, readAt, id)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("message not found: %w", sql.ErrNoRows)
	}

	return &store.Message{ID: id, ReadAt: &readAt}, nil
}

// getUserDetail is a helper loading the public slice of a user row.
func (s *SQLiteStore) getUserDetail(ctx context.Context, username string) (*store.UserDetail, error) {
	query := `
		SELECT username, first_name, last_name, phone
		FROM users
		WHERE username = ?
	`
	var detail store.UserDetail
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&detail.Username,
		&detail.FirstName,
		&detail.LastName,
		&detail.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &detail, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
