package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"texpro/internal/domain"
	"texpro/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:user_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(repository.NewUserRepository(db))
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: " Tech@Mill.Local ", Password: "changeme123", Name: " Aygul ", Role: domain.RoleTechnician})
	require.NoError(t, err)
	assert.Equal(t, "tech@mill.local", u.Email)
	assert.Equal(t, "Aygul", u.Name)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("changeme123")))

	_, err = svc.Create(ctx, CreateInput{Email: "tech@mill.local", Password: "other", Role: domain.RoleOperator})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.Create(ctx, CreateInput{Email: "x@mill.local", Password: "pw", Role: "weaver"})
	var constraint *domain.ConstraintViolationError
	require.Error(t, err)
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, "role", constraint.Field)
}

func TestDeactivateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(repository.NewUserRepository(db))
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "op@mill.local", Password: "changeme123", Role: domain.RoleOperator})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, u.ID))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, svc.Deactivate(ctx, 999), domain.ErrNotFound)
}
