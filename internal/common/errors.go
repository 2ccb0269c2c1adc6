package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrRecipientNotFound  = fmt.Errorf("recipient %w", ErrNotFound)
	ErrSenderNotFound     = fmt.Errorf("sender %w", ErrNotFound)
	ErrDuplicateHandle    = errors.New("handle already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrOverflow           = errors.New("amount overflows balance range")
	ErrSelfTransfer       = errors.New("cannot transfer to own account")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// IsDomainError reports whether err belongs to the typed failure set that is
// safe to surface to a client as-is.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrDuplicateHandle,
		ErrInvalidCredentials,
		ErrUnauthenticated,
		ErrForbidden,
		ErrInvalidAmount,
		ErrInsufficientFunds,
		ErrOverflow,
		ErrSelfTransfer,
		ErrStorageUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
