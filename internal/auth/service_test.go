package auth

import (
	"testing"

	"carrykind-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_EmptyMap(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":  "550e8400-e29b-41d4-a716-446655440000",
		"fullname": "Test User",
		"email":    "test@example.com",
		"role":     "viewer",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.UserID)
	assert.Equal(t, "Test User", u.Fullname)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, "viewer", u.Role)
}

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!pw"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Fullname:     "Ops Admin",
		Email:        "admin@carrykind.org",
		PasswordHash: string(hash),
		Role:         "admin",
	}).Error)
	return db
}

func TestLoginUser_Success(t *testing.T) {
	db := setupAuthDB(t)
	u, err := LoginUser(db, LoginInput{Email: "admin@carrykind.org", Password: "s3cret!pw"})
	require.NoError(t, err)
	assert.Equal(t, "admin@carrykind.org", u.Email)
	assert.Equal(t, "admin", u.Role)
}

func TestLoginUser_MissingFields(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "admin@carrykind.org"})
	assert.Equal(t, ErrEmailPasswordRequired, err)
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "nobody@carrykind.org", Password: "whatever"})
	assert.Equal(t, ErrInvalidEmail, err)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "admin@carrykind.org", Password: "wrong"})
	assert.Equal(t, ErrIncorrectPassword, err)
}
