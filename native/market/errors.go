package market

import "errors"

var (
	ErrNilState              = errors.New("market engine: state not configured")
	ErrMarketExists          = errors.New("market engine: market already initialised")
	ErrMarketNotFound        = errors.New("market engine: market not found")
	ErrInvalidAmount         = errors.New("market engine: amount must be positive")
	ErrInvalidSide           = errors.New("market engine: invalid side")
	ErrMarketNotActive       = errors.New("market engine: market not active")
	ErrAlreadyResolved       = errors.New("market engine: market already resolved")
	ErrNotResolved           = errors.New("market engine: market not resolved")
	ErrAlreadyClaimed        = errors.New("market engine: winnings already claimed")
	ErrNoWinningPosition     = errors.New("market engine: no winning position")
	ErrInsufficientBalance   = errors.New("market engine: insufficient balance")
	ErrInsufficientShares    = errors.New("market engine: insufficient shares")
	ErrInsufficientLiquidity = errors.New("market engine: trade would exhaust a reserve")
	ErrUnauthorized          = errors.New("market engine: caller is not the admin")
)
