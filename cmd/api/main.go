package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/workflow-service/internal/api/http"
	"github.com/spec-kit/workflow-service/internal/api/http/handlers"
	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/config"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/events"
	"github.com/spec-kit/workflow-service/internal/observability"
	"github.com/spec-kit/workflow-service/internal/persistence"
	"github.com/spec-kit/workflow-service/internal/repository"
	"github.com/spec-kit/workflow-service/internal/repository/memory"
	"github.com/spec-kit/workflow-service/internal/service"
	"github.com/spec-kit/workflow-service/internal/sla"
	"github.com/spec-kit/workflow-service/internal/worker"
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

	pool := pg.PoolHandle()

	var (
		ticketRepo   repository.TicketRepository
		timelineRepo repository.TimelineRepository
		auditRepo    repository.AuditRepository
		actorRepo    repository.ActorRepository
		roleRepo     repository.RoleRepository
		counter      service.RefundCounter
	)
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		timelineRepo = repository.NewTimelineRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
		actorRepo = repository.NewActorRepository(pool)
		roleRepo = repository.NewRoleRepository(pool)
		counter = persistence.NewRefundCounter(redis.Client)
	} else {
		logger.Warn("running with in-memory stores; data will not survive restarts")
		ticketRepo = memory.NewTicketRepository()
		timelineRepo = memory.NewTimelineRepository()
		auditRepo = memory.NewAuditRepository()
		actorRepo = memory.NewActorRepository()
		roleRepo = memory.NewRoleRepository()
		counter = memory.NewRefundCounter()
		seedSystemRoles(ctx, roleRepo, logger)
	}

	bootstrapAdmin(ctx, cfg.Auth, actorRepo, logger)

	policy := sla.Default()
	if cfg.SLA.DSARDays > 0 {
		policy.DSARWindow = time.Duration(cfg.SLA.DSARDays) * 24 * time.Hour
	}
	if cfg.SLA.RefundDays > 0 {
		policy.RefundWindow = time.Duration(cfg.SLA.RefundDays) * 24 * time.Hour
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(auditRepo, logger)
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:   ticketRepo,
		TimelineRepo: timelineRepo,
		ActorRepo:    actorRepo,
		RoleRepo:     roleRepo,
		AuditLog:     auditService,
		Policy:       policy,
		RefundPolicy: service.RefundPolicy{
			OpsThreshold:   cfg.Refund.OpsThreshold,
			MaxAutoApprove: cfg.Refund.MaxAutoApprove,
			DailyLimit:     cfg.Refund.DailyLimit,
		},
		Counter:    counter,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	permissionService := service.NewPermissionService(actorRepo, roleRepo, auditService, logger)
	authService := service.NewAuthService(*cfg, actorRepo, auditService)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), actorRepo, roleRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(workflowService),
		Audit:          handlers.NewAuditHandler(auditService),
		Roles:          handlers.NewRolesHandler(permissionService),
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

// bootstrapAdmin creates the initial admin actor on an empty install so the
// first operator can log in. Skipped when disabled or when the actor exists.
// seedSystemRoles mirrors the migration seed for stores that never run
// migrations. Without it the bootstrap admin points at a role that does
// not exist and every request fails authorization.
func seedSystemRoles(ctx context.Context, roles repository.RoleRepository, logger *zap.Logger) {
	for _, role := range domain.SystemRoles(time.Now().UTC()) {
		role := role
		if err := roles.Create(ctx, &role); err != nil {
			logger.Error("failed to seed system role", zap.String("role_id", role.ID), zap.Error(err))
		}
	}
}

func bootstrapAdmin(ctx context.Context, cfg config.AuthConfig, actors repository.ActorRepository, logger *zap.Logger) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return
	}
	if _, err := actors.GetByEmail(ctx, cfg.BootstrapAdminEmail); err == nil {
		return
	}
	hashed, err := auth.HashPassword(cfg.BootstrapAdminPassword, cfg.BcryptCost)
	if err != nil {
		logger.Error("failed to hash bootstrap admin password", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	actor := &domain.Actor{
		ID:           "admin",
		Name:         "Administrator",
		Email:        cfg.BootstrapAdminEmail,
		PasswordHash: hashed,
		RoleID:       domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := actors.Create(ctx, actor); err != nil {
		logger.Error("failed to create bootstrap admin", zap.Error(err))
		return
	}
	logger.Info("bootstrapped admin actor", zap.String("email", actor.Email))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
