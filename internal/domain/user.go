package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Username and name length limits.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 20
	MinNameLen     = 3
	MaxNameLen     = 20
)

var usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// User represents a registered user and the events they are linked to.
// Events, AddedEvents and Reviews are only mutated by the participation engine.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Admin        bool      `json:"admin"`
	Events       []string  `json:"events"`
	AddedEvents  []string  `json:"added_events"`
	Reviews      []string  `json:"reviews"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with empty link sets. ID is typically set by the repository on create.
func NewUser(name, username, email string, admin bool, createdAt, updatedAt time.Time) *User {
	return &User{
		Name:        name,
		Username:    username,
		Email:       email,
		Admin:       admin,
		Events:      []string{},
		AddedEvents: []string{},
		Reviews:     []string{},
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// UsernameKey returns the normalized form usernames are indexed and compared by.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return len(s) >= MinUsernameLen && len(s) <= MaxUsernameLen && usernameRegexp.MatchString(s)
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, username string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines the interface for user storage.
// Inside a transaction, reads lock the returned rows until commit.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByUsername matches case-insensitively via UsernameKey.
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	// ListByBookedEvent returns every user whose Events contains eventID, ordered by ID.
	ListByBookedEvent(ctx context.Context, eventID string) ([]*User, error)
}

// SignUpInput is the input for creating an account.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,min=3,max=20"`
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"omitempty,email"`
	Admin    bool   `json:"admin"`
}

// AuthService is the credential collaborator: it registers users and
// resolves credentials into a signed token.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*User, error)
	Register(ctx context.Context, in SignUpInput) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
}
