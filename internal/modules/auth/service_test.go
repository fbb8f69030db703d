package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"texpro/internal/domain"
	"texpro/internal/repository"
)

type staticIssuer struct{}

func (staticIssuer) GenerateToken(userID int64, role string) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: hash, Role: domain.RoleOperator, IsActive: active}
	require.NoError(t, db.Create(u).Error)
	// GORM skips zero-valued fields that carry a default tag on insert, so
	// IsActive=false must be persisted explicitly.
	require.NoError(t, db.Model(u).Update("is_active", active).Error)
	return u
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(repository.NewUserRepository(db), staticIssuer{})
	ctx := context.Background()
	u := seedUser(t, db, "op@mill.local", "changeme123", true)

	res, err := svc.Login(ctx, "  OP@Mill.Local ", "changeme123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.Equal(t, fmt.Sprintf("token-%d-operator", u.ID), res.Token)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(repository.NewUserRepository(db), staticIssuer{})
	ctx := context.Background()
	seedUser(t, db, "op@mill.local", "changeme123", true)

	_, err := svc.Login(ctx, "op@mill.local", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email looks the same as a wrong password.
	_, err = svc.Login(ctx, "nobody@mill.local", "changeme123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(repository.NewUserRepository(db), staticIssuer{})
	ctx := context.Background()
	seedUser(t, db, "former@mill.local", "changeme123", false)

	_, err := svc.Login(ctx, "former@mill.local", "changeme123")
	assert.ErrorIs(t, err, ErrUserInactive)
}
