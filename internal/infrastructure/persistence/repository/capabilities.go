package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
)

// DetectCapabilities introspects the schema once at startup and reports which
// optional tables this deployment carries. Callers branch on the flags
// instead of probing for missing tables per operation.
func DetectCapabilities(ctx context.Context, db *sql.DB, logger *zap.Logger) (port.Capabilities, error) {
	caps := port.Capabilities{}

	audit, err := tableExists(ctx, db, "cash_expense_audits")
	if err != nil {
		return caps, err
	}
	caps.ExpenseAudit = audit

	installations, err := tableExists(ctx, db, "work_order_installations")
	if err != nil {
		return caps, err
	}
	caps.Installations = installations

	logger.Info("Schema capabilities resolved",
		zap.Bool("expense_audit", caps.ExpenseAudit),
		zap.Bool("installations", caps.Installations))
	return caps, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`

	var exists bool
	if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to introspect schema for %s: %w", name, err)
	}
	return exists, nil
}
