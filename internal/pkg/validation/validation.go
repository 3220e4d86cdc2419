package validation

import "regexp"

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Verification codes are exactly six digits.
var codeRe = regexp.MustCompile(`^\d{6}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidCode(code string) bool {
	return codeRe.MatchString(code)
}
