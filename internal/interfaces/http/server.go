// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetworks/fleet-finance/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// ReconciliationExporter writes reconciliation results to a workbook and
// returns the file path.
type ReconciliationExporter interface {
	ExportDeficits(deficits []service.AdvanceDeficit, partsReports []*service.WorkOrderPartsReport) (string, error)
}

// Services bundles the application services the HTTP adapter exposes.
type Services struct {
	Advance        service.AdvanceService
	Expense        service.ExpenseService
	TripFinance    service.TripFinanceService
	Request        service.RequestService
	Issue          service.IssueService
	Installation   service.InstallationService
	Reconciliation service.ReconciliationService
	Exporter       ReconciliationExporter
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		// Cash advances
		advances := api.Group("/advances")
		{
			advances.POST("", handlers.CreateAdvance)
			advances.GET("", handlers.ListAdvances)
			advances.GET("/summary", handlers.AdvanceSummary)
			advances.GET("/:id", handlers.GetAdvance)
			advances.POST("/:id/submit-review", handlers.SubmitAdvanceForReview)
			advances.POST("/:id/close", handlers.CloseAdvance)
			advances.POST("/:id/reopen", handlers.ReopenAdvance)
		}

		// Cash expenses
		expenses := api.Group("/expenses")
		{
			expenses.POST("", handlers.CreateExpense)
			expenses.GET("", handlers.ListExpenses)
			expenses.GET("/summary", handlers.ExpenseSummary)
			expenses.GET("/:id", handlers.GetExpense)
			expenses.GET("/:id/audit", handlers.ExpenseAuditTrail)
			expenses.POST("/:id/approve", handlers.ApproveExpense)
			expenses.POST("/:id/reject", handlers.RejectExpense)
			expenses.POST("/:id/appeal", handlers.AppealExpense)
			expenses.POST("/:id/resolve-appeal", handlers.ResolveExpenseAppeal)
			expenses.POST("/:id/reopen", handlers.ReopenExpense)
		}

		// Trip financial lifecycle
		trips := api.Group("/trips/:id/finance")
		{
			trips.GET("/totals", handlers.TripTotals)
			trips.POST("/submit-review", handlers.SubmitTripForReview)
			trips.POST("/close", handlers.CloseTripFinance)
			trips.POST("/reopen", handlers.ReopenTripFinance)
		}

		// Inventory requests
		requests := api.Group("/inventory/requests")
		{
			requests.POST("", handlers.CreateRequest)
			requests.GET("", handlers.ListRequests)
			requests.GET("/:id", handlers.GetRequest)
			requests.GET("/:id/reservations", handlers.RequestReservations)
			requests.POST("/:id/approve", handlers.ApproveRequest)
			requests.POST("/:id/unreserve", handlers.UnreserveRequest)
			requests.POST("/:id/reject", handlers.RejectRequest)
		}

		// Inventory issues
		issues := api.Group("/inventory/issues")
		{
			issues.POST("", handlers.CreateIssueDraft)
			issues.GET("", handlers.ListIssues)
			issues.GET("/:id", handlers.GetIssue)
			issues.POST("/:id/post", handlers.PostIssue)
		}

		// Work order installations and reconciliation
		workOrders := api.Group("/work-orders/:id")
		{
			workOrders.POST("/installations", handlers.AddInstallations)
			workOrders.GET("/installations", handlers.ListInstallations)
			workOrders.GET("/parts-reconciliation", handlers.WorkOrderParts)
		}

		// Financial reconciliation
		recon := api.Group("/reconciliation")
		{
			recon.GET("/deficits", handlers.AdvanceDeficits)
			recon.GET("/supervisors/:id", handlers.SupervisorLedger)
			recon.POST("/export", handlers.ExportReconciliation)
		}
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
