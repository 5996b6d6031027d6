package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/dispatcher"
	"github.com/finvera/expense-approval/internal/application/service"
	"github.com/finvera/expense-approval/internal/config"
	"github.com/finvera/expense-approval/internal/domain/event"
	"github.com/finvera/expense-approval/internal/infrastructure/external/exchange"
	"github.com/finvera/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/finvera/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/finvera/expense-approval/internal/infrastructure/storage"
	httpserver "github.com/finvera/expense-approval/internal/interfaces/http"
	"github.com/finvera/expense-approval/pkg/database"
	"github.com/finvera/expense-approval/pkg/utils"
)

func main() {
	// Load .env before config so JWT_SECRET and friends are visible
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(os.DirFS(cfg.Database.MigrationsDir)); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db, logger)

	// Repositories
	expenseRepo := repository.NewExpenseRepository(db, logger)
	ruleRepo := repository.NewRuleRepository(db, logger)
	stepRepo := repository.NewStepRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	companyRepo := repository.NewCompanyRepository(db, logger)

	// External adapters
	converter := exchange.NewClient(cfg.Currency.APIBaseURL, cfg.Currency.APITimeout, logger)
	receipts, err := storage.NewLocalReceiptStore(cfg.Storage.ReceiptDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize receipt store", zap.Error(err))
	}

	serviceLogger := utils.NewSugarAdapter(logger)

	events := dispatcher.New(serviceLogger)
	registerEventLogging(events, serviceLogger)
	defer events.Close()

	// Services
	approvalService := service.NewApprovalService(
		expenseRepo, ruleRepo, stepRepo, userRepo, txManager, events, serviceLogger)
	expenseService := service.NewExpenseService(
		expenseRepo, stepRepo, userRepo, companyRepo, converter, receipts,
		approvalService, events, serviceLogger)
	authService := service.NewAuthService(
		userRepo, companyRepo, txManager, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, serviceLogger)
	userService := service.NewUserService(userRepo, serviceLogger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, authService, expenseService, approvalService, userService, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// registerEventLogging subscribes an audit-log handler to every workflow
// event so lifecycle transitions are traceable in the logs
func registerEventLogging(events dispatcher.Dispatcher, logger dispatcher.Logger) {
	logEvent := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Workflow event",
			"event_id", evt.ID,
			"event_type", evt.Type,
			"expense_id", evt.ExpenseID,
			"company_id", evt.CompanyID,
		)
		return nil
	}

	for _, t := range []event.Type{
		event.TypeExpenseSubmitted,
		event.TypeWorkflowStarted,
		event.TypeStepDecided,
		event.TypeExpenseApproved,
		event.TypeExpenseRejected,
	} {
		events.Subscribe(t, "audit_log", logEvent)
	}
}
