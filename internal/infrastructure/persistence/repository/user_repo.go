package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether a user id is known
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`

	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check user existence", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
