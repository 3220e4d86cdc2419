package sponsorships

import "errors"

var (
	ErrSponsorshipNotFound = errors.New("Sponsorship not found")
	ErrNotPending          = errors.New("Sponsorship is not pending review")
	ErrNotApproved         = errors.New("Sponsorship is not approved")
	ErrInvalidQuantity     = errors.New("Tote quantity must be at least 1")
	ErrReasonRequired      = errors.New("A rejection reason is required")
)
