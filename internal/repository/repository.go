package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"texpro/internal/domain"
)

// Repositories operate on gorm-tagged domain structs. Each repository exposes
// WithTx so a service can run several mutations inside one gorm transaction;
// the zero-tx form runs against the base connection.

// IsUniqueViolation detects duplicate-key failures on both postgres and
// sqlite so services can map them to constraint violations.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrCancelled
	}
	return err
}
