package waitlist

import "errors"

var (
	ErrDuplicateEntry = errors.New("You are already on the waitlist for this cause")
	ErrEntryNotFound  = errors.New("Waitlist entry not found")
	ErrTokenInvalid   = errors.New("Invalid claim link")
	ErrTokenExpired   = errors.New("This claim link has expired")
	ErrTokenUsed      = errors.New("This claim link has already been used")
)
