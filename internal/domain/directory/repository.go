package directory

import (
	"context"
	"errors"
)

var ErrPrincipalNotFound = errors.New("principal not found")

// Repository reads the responsible-party directory.
type Repository interface {
	// ListAll returns every profile; the engine indexes it by id for one run.
	ListAll(ctx context.Context) ([]*Person, error)
}

// PrincipalRepository resolves bearer credentials to principals.
type PrincipalRepository interface {
	// GetByToken returns the principal owning an unexpired token, or ErrPrincipalNotFound.
	GetByToken(ctx context.Context, token string) (*Principal, error)
}
