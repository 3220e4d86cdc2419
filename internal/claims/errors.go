package claims

import "errors"

var (
	ErrDuplicateClaim     = errors.New("An active claim already exists for this email and cause")
	ErrClaimNotFound      = errors.New("Claim not found")
	ErrInvalidChannel     = errors.New("Unknown claim channel")
	ErrNotPending         = errors.New("Claim is not awaiting verification")
	ErrResendLimit        = errors.New("Verification code resend limit reached")
	ErrTokenRequired      = errors.New("A claim link token is required for this channel")
	ErrTokenEmailMismatch = errors.New("Claim link was issued to a different email")
	ErrInvalidTransition  = errors.New("Invalid fulfilment transition")
	ErrAlreadyShipped     = errors.New("Claim has already shipped and cannot be cancelled")
)
