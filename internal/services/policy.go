package services

import (
	"context"
	"errors"

	"eventticketing/internal/domain"
)

// AccessPolicy decides what an authenticated caller may do. Callers are
// resolved from storage on every call, so a revoked admin flag or a renamed
// account takes effect on the next operation.
type AccessPolicy struct {
	users domain.UserRepository
}

// NewAccessPolicy returns an AccessPolicy resolving callers through users.
func NewAccessPolicy(users domain.UserRepository) *AccessPolicy {
	return &AccessPolicy{users: users}
}

// Resolve returns the user behind callerID, or nil when it does not resolve.
func (p *AccessPolicy) Resolve(ctx context.Context, callerID string) (*domain.User, error) {
	if callerID == "" {
		return nil, nil
	}
	u, err := p.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.AsStorageError("resolve caller", err)
	}
	return u, nil
}

// CanActAs reports whether caller may act on behalf of username. The match is
// exact against the stored username.
func CanActAs(caller *domain.User, username string) bool {
	return caller != nil && caller.Username == username
}

// IsAdmin reports whether caller holds the admin flag.
func IsAdmin(caller *domain.User) bool {
	return caller != nil && caller.Admin
}

func (p *AccessPolicy) requireActAs(ctx context.Context, callerID, username string) (*domain.User, error) {
	caller, err := p.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !CanActAs(caller, username) {
		return nil, domain.ErrForbidden
	}
	return caller, nil
}

func (p *AccessPolicy) requireAdmin(ctx context.Context, callerID string) (*domain.User, error) {
	caller, err := p.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(caller) {
		return nil, domain.ErrAdminRequired
	}
	return caller, nil
}
