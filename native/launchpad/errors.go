package launchpad

import "errors"

var (
	ErrNilState            = errors.New("launchpad engine: state not configured")
	ErrProjectNotFound     = errors.New("launchpad engine: project not found")
	ErrInvalidAmount       = errors.New("launchpad engine: amount must be positive")
	ErrInvalidParams       = errors.New("launchpad engine: invalid project parameters")
	ErrCapExceeded         = errors.New("launchpad engine: individual cap exceeded")
	ErrProjectNotPending   = errors.New("launchpad engine: project is past the pending phase")
	ErrProjectNotActive    = errors.New("launchpad engine: project not active")
	ErrProjectNotEnded     = errors.New("launchpad engine: project not ended")
	ErrNoInvestment        = errors.New("launchpad engine: no investment recorded")
	ErrAlreadyWithdrawn    = errors.New("launchpad engine: tokens already withdrawn")
	ErrInsufficientBalance = errors.New("launchpad engine: insufficient balance")
	ErrUnauthorized        = errors.New("launchpad engine: caller is not the admin")
)
