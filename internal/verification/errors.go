package verification

import "errors"

var (
	ErrChallengeExpired = errors.New("Verification code has expired")
	ErrCodeMismatch     = errors.New("Incorrect verification code")
	ErrChallengeUsed    = errors.New("Verification code has already been used")
)
