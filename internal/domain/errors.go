package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMarketNotFound      = errors.New("market not found")
	ErrBetNotFound         = errors.New("bet not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrMarketInactive      = errors.New("market inactive")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotResolved         = errors.New("bet not resolved")
	ErrAlreadyClaimed      = errors.New("winnings already claimed")
	ErrNoWinnings          = errors.New("no winnings to claim")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLockHeld            = errors.New("lock already held")
	ErrBlobNotFound        = errors.New("blob not found")
)
