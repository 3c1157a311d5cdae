package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrRateLimited     = errors.New("rate limited")
	ErrTradingDisabled = errors.New("trading disabled")
	ErrNoCredentials   = errors.New("trading credentials not configured")
	ErrLockHeld        = errors.New("lock already held")
)
