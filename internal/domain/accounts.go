package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AccountStore captures persistence operations for users and their role rows.
type AccountStore interface {
	// CreateUser inserts the user and its role row atomically. A duplicate
	// email yields ErrEmailTaken.
	CreateUser(ctx context.Context, user User) (int64, error)
	// FindUserByEmail returns nil, nil when no user matches.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// RenameUser returns ErrUserNotFound when the user does not exist.
	RenameUser(ctx context.Context, userID int64, name string) (*User, error)
	// DeleteUser removes the user and cascades to everything they own.
	DeleteUser(ctx context.Context, userID int64) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, role Role) (string, error)
}

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// Registration is the payload for creating an account.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  User
}

// Accounts orchestrates registration, login and self-service account changes.
type Accounts struct {
	store  AccountStore
	hasher PasswordHasher
	issuer TokenIssuer
}

// NewAccounts constructs Accounts.
func NewAccounts(store AccountStore, hasher PasswordHasher, issuer TokenIssuer) *Accounts {
	return &Accounts{store: store, hasher: hasher, issuer: issuer}
}

// Register creates a provider or consumer account and returns its id.
func (a *Accounts) Register(ctx context.Context, reg Registration) (int64, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)
	if name == "" || email == "" || reg.Password == "" || reg.Role == "" {
		return 0, fmt.Errorf("%w: name, email, password and role are required", ErrInvalidInput)
	}
	if !reg.Role.Valid() {
		return 0, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleProvider, RoleConsumer)
	}
	if len(reg.Password) < MinPasswordLength {
		return 0, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := a.hasher.Hash(reg.Password)
	if err != nil {
		return 0, err
	}

	return a.store.CreateUser(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         reg.Role,
		CreatedAt:    time.Now().UTC(),
	})
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := a.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := a.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	profile := *user
	profile.PasswordHash = ""
	return &Session{Token: token, User: profile}, nil
}

// Rename changes the display name of the requester's own account.
func (a *Accounts) Rename(ctx context.Context, requesterID, userID int64, name string) (*User, error) {
	if requesterID != userID {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	user, err := a.store.RenameUser(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// DeleteAccount removes the requester's own account and all associated data.
func (a *Accounts) DeleteAccount(ctx context.Context, requesterID, userID int64) error {
	if requesterID != userID {
		return ErrForbidden
	}
	return a.store.DeleteUser(ctx, userID)
}
