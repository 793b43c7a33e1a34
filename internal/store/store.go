package store

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinedAt     time.Time
	LastLoginAt  *time.Time
}

// Message represents a persisted direct message.
// ReadAt is nil until the recipient marks the message read.
type Message struct {
	ID           int64
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time
}

// UserDetail is the public slice of a user joined into message reads.
type UserDetail struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// MessageDetail is a message with sender and recipient detail attached.
type MessageDetail struct {
	ID       int64
	Body     string
	SentAt   time.Time
	ReadAt   *time.Time
	FromUser UserDetail
	ToUser   UserDetail
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password and profile fields.
	CreateUser(ctx context.Context, username, passwordHash, firstName, lastName, phone string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// TouchLastLogin stamps the user's last_login_at with the current time.
	TouchLastLogin(ctx context.Context, username string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage inserts a new message. The store assigns id and sent_at;
	// the returned message has ReadAt unset.
	CreateMessage(ctx context.Context, fromUsername, toUsername, body string) (*Message, error)

	// GetMessage retrieves a message with sender and recipient detail joined in.
	GetMessage(ctx context.Context, id int64) (*MessageDetail, error)

	// MarkMessageRead sets read_at to the current time and returns the updated
	// id and timestamp. Re-marking moves the timestamp forward.
	MarkMessageRead(ctx context.Context, id int64) (*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
