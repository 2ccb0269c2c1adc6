// Package authority resolves a session token to an identity and decides
// whether that identity may perform a privileged operation.
package authority

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"market/internal/auth"
	"market/internal/common"
	"market/internal/models"
	"market/internal/session"
)

// Identity is the authority derived from a session. The zero value is the
// anonymous identity.
type Identity struct {
	AccountID string
	Handle    string
	Role      models.Role
	SessionID string
	ExpiresAt time.Time
}

func Anonymous() Identity {
	return Identity{}
}

func (i Identity) Authenticated() bool {
	return i.AccountID != ""
}

func (i Identity) Elevated() bool {
	return i.Authenticated() && i.Role == models.RoleElevated
}

// CheckElevated returns the error a privileged operation must fail with when
// invoked by i.
func (i Identity) CheckElevated() error {
	if !i.Authenticated() {
		return common.ErrUnauthenticated
	}
	if !i.Elevated() {
		return common.ErrForbidden
	}
	return nil
}

type AccountLookup interface {
	GetByID(ctx context.Context, accountID string) (models.Account, error)
}

type Guard struct {
	secret   string
	ttl      time.Duration
	accounts AccountLookup
	revoked  session.RevocationStore
}

func NewGuard(secret string, ttl time.Duration, accounts AccountLookup, revoked session.RevocationStore) *Guard {
	return &Guard{secret: secret, ttl: ttl, accounts: accounts, revoked: revoked}
}

// Resolve maps a token to an identity. Missing, malformed, expired or revoked
// tokens and tokens of deleted accounts resolve to Anonymous without error.
// The role is always taken from the stored account.
func (g *Guard) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Anonymous(), nil
	}
	claims, err := auth.ParseToken(g.secret, token)
	if err != nil {
		log.WithError(err).Debug("rejecting session token")
		return Anonymous(), nil
	}

	revoked, err := g.revoked.IsRevoked(ctx, claims.SessionID())
	if err != nil {
		log.WithError(err).Error("revocation lookup failed")
		return Anonymous(), common.ErrStorageUnavailable
	}
	if revoked {
		return Anonymous(), nil
	}

	account, err := g.accounts.GetByID(ctx, claims.AccountID)
	if errors.Is(err, common.ErrNotFound) {
		return Anonymous(), nil
	}
	if err != nil {
		log.WithError(err).WithField("account_id", claims.AccountID).Error("account lookup failed")
		return Anonymous(), common.ErrStorageUnavailable
	}

	return Identity{
		AccountID: account.ID,
		Handle:    account.Handle,
		Role:      account.Role,
		SessionID: claims.SessionID(),
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (g *Guard) RequireAuthenticated(ctx context.Context, token string) (Identity, error) {
	identity, err := g.Resolve(ctx, token)
	if err != nil {
		return Anonymous(), err
	}
	if !identity.Authenticated() {
		return Anonymous(), common.ErrUnauthenticated
	}
	return identity, nil
}

func (g *Guard) RequireElevated(ctx context.Context, token string) (Identity, error) {
	identity, err := g.RequireAuthenticated(ctx, token)
	if err != nil {
		return identity, err
	}
	if err := identity.CheckElevated(); err != nil {
		return identity, err
	}
	return identity, nil
}

// Issue mints a session token for account.
func (g *Guard) Issue(account models.Account) (string, error) {
	return auth.GenerateToken(g.secret, account.ID, g.ttl)
}

// Revoke ends the session behind identity. The token stays rejected until it
// would have expired.
func (g *Guard) Revoke(ctx context.Context, identity Identity) error {
	if !identity.Authenticated() || identity.SessionID == "" {
		return common.ErrUnauthenticated
	}
	if err := g.revoked.Revoke(ctx, identity.SessionID, identity.ExpiresAt); err != nil {
		log.WithError(err).Error("session revocation failed")
		return common.ErrStorageUnavailable
	}
	return nil
}
