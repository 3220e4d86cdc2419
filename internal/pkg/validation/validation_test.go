package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@example.com"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.org"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("no-at-sign"))
	assert.False(t, IsValidEmail("spaces in@example.com"))
	assert.False(t, IsValidEmail("a@nodot"))
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("000000"))
	assert.True(t, IsValidCode("493021"))
	assert.False(t, IsValidCode("12345"))
	assert.False(t, IsValidCode("1234567"))
	assert.False(t, IsValidCode("12a456"))
	assert.False(t, IsValidCode(""))
}
