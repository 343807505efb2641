package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/handlers"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/services/encryption"
	"github.com/ternarybob/venator/internal/services/events"
	jobsvc "github.com/ternarybob/venator/internal/services/jobs"
	"github.com/ternarybob/venator/internal/services/notify"
	"github.com/ternarybob/venator/internal/services/parsers"
	"github.com/ternarybob/venator/internal/services/queue"
	"github.com/ternarybob/venator/internal/services/reports"
	"github.com/ternarybob/venator/internal/services/runner"
	"github.com/ternarybob/venator/internal/services/scheduler"
	"github.com/ternarybob/venator/internal/services/workflow"
	"github.com/ternarybob/venator/internal/storage/badger"
	"github.com/ternarybob/venator/internal/tools"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService      interfaces.EventService
	EncryptionService interfaces.EncryptionService
	QueueService      interfaces.QueueService
	RunnerService     *runner.Service
	ToolRegistry      interfaces.ToolRegistry
	Upserter          *parsers.Upserter
	JobService        *jobsvc.Service
	SchedulerService  *scheduler.Service
	NotifyService     interfaces.Notifier
	WorkflowEngine    *workflow.Engine
	ReportService     *reports.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ProjectHandler  *handlers.ProjectHandler
	AssetHandler    *handlers.AssetHandler
	JobHandler      *handlers.JobHandler
	WorkflowHandler *handlers.WorkflowHandler
	FindingHandler  *handlers.FindingHandler
	ToolHandler     *handlers.ToolHandler
	ImportHandler   *handlers.ImportHandler
	ReportHandler   *handlers.ReportHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	logger.Info().
		Int("tools", len(app.ToolRegistry.List())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	var err error

	a.EventService = events.NewService(a.Logger)

	a.EncryptionService, err = encryption.NewService(a.Config.Encryption.Keys, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption service: %w", err)
	}

	a.QueueService = queue.NewService(&a.Config.Queue, a.Logger)
	a.RunnerService = runner.NewService(&a.Config.Runner, a.Logger)
	a.ToolRegistry = tools.NewRegistry(a.Logger)
	a.Upserter = parsers.NewUpserter(a.StorageManager, a.EncryptionService, a.Logger)

	a.JobService = jobsvc.NewService(
		a.StorageManager,
		a.QueueService,
		a.EventService,
		a.RunnerService,
		a.ToolRegistry,
		a.Upserter,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(a.StorageManager, a.JobService, a.Config.Queue.SweepInterval, a.Logger)
	a.NotifyService = notify.NewService(&a.Config.Notify, a.EventService, a.Logger)

	a.WorkflowEngine = workflow.NewEngine(
		a.StorageManager,
		a.EventService,
		a.QueueService,
		a.JobService,
		a.NotifyService,
		&a.Config.Workflow,
		a.Logger,
	)

	a.ReportService = reports.NewService(&a.Config.Reports, a.StorageManager, a.EventService, a.Logger)
	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, &a.Config.WebSocket, a.Logger)
	a.ProjectHandler = handlers.NewProjectHandler(a.StorageManager, a.EventService, a.Logger)
	a.AssetHandler = handlers.NewAssetHandler(a.StorageManager, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobService, a.StorageManager, a.Logger)
	a.WorkflowHandler = handlers.NewWorkflowHandler(a.StorageManager, a.WorkflowEngine, a.Logger)
	a.FindingHandler = handlers.NewFindingHandler(a.StorageManager, a.EncryptionService, a.Logger)
	a.ToolHandler = handlers.NewToolHandler(a.ToolRegistry, a.Logger)
	a.ImportHandler = handlers.NewImportHandler(a.JobService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, a.Logger)
}

// Start brings up the background workers
func (a *App) Start() error {
	if err := a.QueueService.Start(); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close stops background workers and closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.QueueService != nil {
		if err := a.QueueService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop queue service")
		}
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
