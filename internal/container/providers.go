package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/application/service"
	"github.com/fleetworks/fleet-finance/internal/config"
	"github.com/fleetworks/fleet-finance/internal/infrastructure/persistence/repository"
	"github.com/fleetworks/fleet-finance/internal/infrastructure/persistence/sqlite"
	"github.com/fleetworks/fleet-finance/pkg/database"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, runs pending migrations and wraps the
// connection with the transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.MigrationsDir != "" {
		migrator := database.NewMigrator(db, logger)
		if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Advance:      repository.NewAdvanceRepository(sqlDB, logger),
		Expense:      repository.NewExpenseRepository(sqlDB, logger),
		ExpenseAudit: repository.NewExpenseAuditRepository(sqlDB, logger),
		Request:      repository.NewRequestRepository(sqlDB, logger),
		Reservation:  repository.NewReservationRepository(sqlDB, logger),
		PartItem:     repository.NewPartItemRepository(sqlDB, logger),
		Issue:        repository.NewIssueRepository(sqlDB, logger),
		Installation: repository.NewInstallationRepository(sqlDB, logger),
		User:         repository.NewUserRepository(sqlDB, logger),

		Trip:             repository.NewTripRepository(sqlDB, logger),
		VehiclePortfolio: repository.NewVehiclePortfolioRepository(sqlDB, logger),
		WorkOrder:        repository.NewWorkOrderRepository(sqlDB, logger),
	}, nil
}

// ProvideCapabilities inspects the schema once at startup to decide which
// optional features this deployment carries.
func ProvideCapabilities(ctx context.Context, sqlDB *sql.DB, logger *zap.Logger) (port.Capabilities, error) {
	if sqlDB == nil {
		return port.Capabilities{}, fmt.Errorf("database connection is required")
	}
	return repository.DetectCapabilities(ctx, sqlDB, logger)
}

// ServiceDeps holds everything the service layer needs.
type ServiceDeps struct {
	Repos        *RepositoryBundle
	Capabilities port.Capabilities
	TxManager    port.TransactionManager
	Logger       *zap.Logger
}

// ProvideServices wires all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Advance: service.NewAdvanceService(
			deps.Repos.Advance,
			deps.Repos.Expense,
			deps.Repos.User,
			deps.TxManager,
			serviceLogger,
		),
		Expense: service.NewExpenseService(
			deps.Repos.Expense,
			deps.Repos.Advance,
			deps.Repos.ExpenseAudit,
			deps.Repos.Trip,
			deps.Repos.VehiclePortfolio,
			deps.Repos.WorkOrder,
			deps.Capabilities,
			deps.TxManager,
			serviceLogger,
		),
		TripFinance: service.NewTripFinanceService(
			deps.Repos.Expense,
			deps.Repos.Trip,
			serviceLogger,
		),
		Request: service.NewRequestService(
			deps.Repos.Request,
			deps.Repos.Reservation,
			deps.Repos.PartItem,
			deps.Repos.WorkOrder,
			deps.TxManager,
			serviceLogger,
		),
		Issue: service.NewIssueService(
			deps.Repos.Issue,
			deps.Repos.Request,
			deps.Repos.Reservation,
			deps.Repos.PartItem,
			deps.Repos.WorkOrder,
			deps.TxManager,
			serviceLogger,
		),
		Installation: service.NewInstallationService(
			deps.Repos.Installation,
			deps.Repos.PartItem,
			deps.Repos.Issue,
			deps.Repos.WorkOrder,
			deps.Capabilities,
			deps.TxManager,
			serviceLogger,
		),
		Reconciliation: service.NewReconciliationService(
			deps.Repos.Advance,
			deps.Repos.Expense,
			deps.Repos.Issue,
			deps.Repos.Installation,
			deps.Capabilities,
			serviceLogger,
		),
	}, nil
}
