package core

import "errors"

var (
	ErrPlayerNotFound      = errors.New("core: player not installed")
	ErrInvalidAmount       = errors.New("core: amount must be positive")
	ErrUnauthorized        = errors.New("core: caller is not the admin")
	ErrInsufficientBalance = errors.New("core: insufficient balance")
	ErrUnknownCommand      = errors.New("core: unknown command")
)
