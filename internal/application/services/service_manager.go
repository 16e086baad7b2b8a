package services

import (
	"context"
	"log"
	"time"

	"github.com/coverline/backend/internal/domain"
	"github.com/coverline/backend/internal/infrastructure/database"
	"github.com/coverline/backend/internal/infrastructure/persistence"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager    *persistence.TransactionManager
	EventBus     *EventBus
	Outbox       *OutboxService
	Notification *NotificationService
	Auth         *AuthService
	Claims       *ClaimService
	Policies     *PolicyService
	Executor     *WorkflowExecutor
	Scheduler    *WorkflowScheduler
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection) *ServiceManager {
	sm := &ServiceManager{db: db}

	sm.TxManager = persistence.NewTransactionManager(db.DB())
	sm.EventBus = NewEventBus()

	claimRepo := persistence.NewClaimRepository(db.DB(), sm.TxManager)
	policyRepo := persistence.NewPolicyRepository(db.DB(), sm.TxManager)
	workflowRepo := persistence.NewWorkflowRepository(db.DB(), sm.TxManager)
	timerRepo := persistence.NewTimerRepository(db.DB(), sm.TxManager)
	outboxRepo := persistence.NewOutboxRepository(db.DB(), sm.TxManager)
	notificationRepo := persistence.NewNotificationRepository(db.DB(), sm.TxManager)
	adminRepo := persistence.NewAdminRepository(db.DB(), sm.TxManager)

	sm.Outbox = NewOutboxService(db.DB(), outboxRepo, sm.EventBus)
	sm.Notification = NewNotificationService(notificationRepo)
	sm.Notification.RegisterHandlers(sm.EventBus)

	sm.Auth = NewAuthService(adminRepo)

	sm.Executor = NewWorkflowExecutor(sm.TxManager, claimRepo, workflowRepo, timerRepo, sm.Outbox)
	sm.Scheduler = NewWorkflowScheduler(sm.Executor, sm.TxManager, claimRepo, timerRepo)

	sm.Claims = NewClaimService(sm.TxManager, claimRepo, workflowRepo, sm.Outbox, sm.Scheduler)

	underwriter := domain.NewUnderwriter(domain.DefaultUnderwriterRules())
	sm.Policies = NewPolicyService(sm.TxManager, policyRepo, sm.Outbox, underwriter)

	// Nightly maintenance: policy expiry, then outbox cleanup
	sm.Scheduler.RegisterSweep(sm.Policies.ExpireSweep)
	sm.Scheduler.RegisterSweep(sm.cleanupOutbox)

	return sm
}

// Start launches the background machinery: workflow workers, timer poller,
// maintenance cron, and the outbox publisher.
func (sm *ServiceManager) Start() {
	sm.Scheduler.Start()
	sm.Outbox.StartWorker(2 * time.Second)
}

// Stop shuts everything down gracefully, draining in-flight work
func (sm *ServiceManager) Stop() {
	sm.Scheduler.Stop()
	sm.Outbox.StopWorker()
}

func (sm *ServiceManager) cleanupOutbox(ctx context.Context) {
	const retention = 7 * 24 * time.Hour
	if _, err := sm.Outbox.CleanupProcessed(ctx, retention); err != nil {
		log.Printf("⚠️ Outbox cleanup failed: %v", err)
	}
}
