package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	txManager := repository.NewTxManager(pool)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokenManager,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: complaintRepo,
		CommentRepo:   commentRepo,
		CategoryRepo:  categoryRepo,
		PolicyRepo:    policyRepo,
		TxManager:     txManager,
		Dispatcher:    dispatcher,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		EscalationRepo: escalationRepo,
		ComplaintRepo:  complaintRepo,
		TxManager:      txManager,
		Dispatcher:     dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ComplaintRepo: complaintRepo,
		UserRepo:      userRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	maintenanceService := service.NewMaintenanceService(service.MaintenanceDependencies{
		ComplaintRepo:  complaintRepo,
		EscalationRepo: escalationRepo,
		UserRepo:       userRepo,
		TxManager:      txManager,
		Cache:          redis.ClientHandle(),
		CacheTTL:       cfg.Jobs.StatsCacheTTL,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		PolicyRepo:   policyRepo,
		CategoryRepo: categoryRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	scheduler := worker.NewScheduler(worker.SchedulerDependencies{
		Jobs:              cfg.Jobs,
		EscalateThreshold: cfg.SLA.EscalateThreshold(),
		Assignment:        assignmentService,
		Maintenance:       maintenanceService,
		Metrics:           metrics,
		Logger:            logger,
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:      handlers.NewUsersHandler(authService),
		Complaints: handlers.NewComplaintsHandler(complaintService, slaService),
		Staff:      handlers.NewStaffComplaintsHandler(complaintService, escalationService),
		Admin: handlers.NewAdminHandler(handlers.AdminDependencies{
			Complaints:        complaintService,
			Escalations:       escalationService,
			Assignment:        assignmentService,
			Maintenance:       maintenanceService,
			SLA:               slaService,
			Auth:              authService,
			Metrics:           metrics,
			EscalateThreshold: cfg.SLA.EscalateThreshold(),
		}),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
