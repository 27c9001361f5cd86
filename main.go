package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/config"
	"github.com/deepscout-ai/deepscout/internal/constants"
	"github.com/deepscout-ai/deepscout/internal/docstore"
	"github.com/deepscout-ai/deepscout/internal/health"
	"github.com/deepscout-ai/deepscout/internal/httpapi"
	"github.com/deepscout-ai/deepscout/internal/llm"
	"github.com/deepscout-ai/deepscout/internal/search"
	"github.com/deepscout-ai/deepscout/internal/session"
	"github.com/deepscout-ai/deepscout/internal/sources"
	"github.com/deepscout-ai/deepscout/internal/streaming"
	"github.com/deepscout-ai/deepscout/internal/temporal"
	"github.com/deepscout-ai/deepscout/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// ------------------------------------------------------------------
	// Bring up the health manager and admin endpoints early so probes
	// respond while the Temporal worker is still starting.
	// ------------------------------------------------------------------
	hm := health.NewManager(logger)
	adminMux := http.NewServeMux()
	health.NewHTTPHandler(hm, logger).RegisterRoutes(adminMux)
	adminMux.Handle("/metrics", promhttp.Handler())
	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.AdminPort)
		logger.Info("Admin HTTP server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, adminMux); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin HTTP server failed", zap.Error(err))
		}
	}()

	// Session store
	sessionManager, err := session.NewManager(cfg.Redis.Addr, logger)
	if err != nil {
		logger.Fatal("Failed to connect to session store", zap.Error(err))
	}
	defer sessionManager.Close()
	_ = hm.RegisterChecker(health.NewRedisHealthChecker(sessionManager, logger))

	// Document store for uploaded files
	docs, err := docstore.NewStore(cfg.Docstore.Root, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}

	// Session-scoped citation registries
	srcStore := sources.NewStore(24 * time.Hour)

	// LLM service client
	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.Timeout, logger)
	_ = hm.RegisterChecker(health.NewLLMServiceHealthChecker(cfg.LLM.BaseURL, logger))

	// Search clients, with optional per-deployment source profiles
	searchCfg := search.Config{
		WebBaseURL:         cfg.Search.WebBaseURL,
		AcademicBaseURL:    cfg.Search.AcademicBaseURL,
		Timeout:            cfg.Search.Timeout,
		RatePerSecond:      cfg.Search.RatePerSecond,
		Burst:              cfg.Search.Burst,
		WebMaxResults:      cfg.Search.WebMaxResults,
		AcademicMaxResults: cfg.Search.AcademicMaxResults,
	}
	if profiles, err := search.LoadProfiles(cfg.Search.ProfilesFile); err != nil {
		logger.Warn("Search profiles not loaded, using defaults",
			zap.String("file", cfg.Search.ProfilesFile),
			zap.Error(err),
		)
	} else {
		searchCfg = profiles.Apply(searchCfg)
	}
	searchClient := search.NewClient(searchCfg, logger)

	// Hot-reloadable config files (search profiles etc.)
	cfgManager, err := config.NewManager(filepath.Dir(cfg.Search.ProfilesFile), logger)
	if err != nil {
		logger.Warn("Config watcher not available", zap.Error(err))
	} else {
		cfgManager.RegisterHandler(filepath.Base(cfg.Search.ProfilesFile), func(event config.ChangeEvent) error {
			profiles, err := search.LoadProfiles(cfg.Search.ProfilesFile)
			if err != nil {
				return fmt.Errorf("reload source profiles: %w", err)
			}
			searchClient.Reconfigure(profiles.Apply(searchCfg))
			logger.Info("Search profiles reloaded",
				zap.String("file", event.File),
				zap.String("action", event.Action),
			)
			return nil
		})
		if err := cfgManager.Start(); err != nil {
			logger.Warn("Config watcher not started", zap.Error(err))
		}
		defer cfgManager.Stop()
	}

	streaming.Configure(256)

	// ------------------------------------------------------------------
	// Temporal: wait for the frontend, then dial with retry.
	// ------------------------------------------------------------------
	for i := 1; i <= 60; i++ {
		c, err := net.DialTimeout("tcp", cfg.Temporal.HostPort, 2*time.Second)
		if err == nil {
			_ = c.Close()
			break
		}
		logger.Warn("Waiting for Temporal TCP endpoint",
			zap.String("host", cfg.Temporal.HostPort),
			zap.Int("attempt", i),
		)
		time.Sleep(time.Second)
	}
	var tClient client.Client
	for attempt := 1; ; attempt++ {
		tClient, err = client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewZapAdapter(logger),
		})
		if err == nil {
			break
		}
		delay := time.Duration(attempt) * time.Second
		if delay > 15*time.Second {
			delay = 15 * time.Second
		}
		logger.Warn("Temporal not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("sleep", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	defer tClient.Close()
	_ = hm.RegisterChecker(health.NewTemporalHealthChecker(tClient, logger))

	// ------------------------------------------------------------------
	// Task API server
	// ------------------------------------------------------------------
	apiMux := http.NewServeMux()
	httpapi.NewTasksHandler(tClient, cfg.Research, cfg.Temporal.TaskQueue, logger).RegisterRoutes(apiMux)
	httpapi.NewDocumentsHandler(docs, logger).RegisterRoutes(apiMux)
	httpapi.NewStreamingHandler(streaming.Get(), logger).RegisterRoutes(apiMux)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		server := &http.Server{
			Addr:        addr,
			Handler:     apiMux,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		logger.Info("Task API server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Task API server failed", zap.Error(err))
		}
	}()

	// ------------------------------------------------------------------
	// Temporal worker
	// ------------------------------------------------------------------
	acts := activities.NewActivities(llmClient, searchClient, docs, srcStore, sessionManager, logger)

	w := worker.New(tClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     20,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})
	registerWorkflows(w)
	registerActivities(w, acts)

	logger.Info("Temporal worker starting",
		zap.String("queue", cfg.Temporal.TaskQueue),
		zap.String("namespace", cfg.Temporal.Namespace),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Temporal worker exited", zap.Error(err))
	}
}

func registerWorkflows(w worker.Worker) {
	w.RegisterWorkflowWithOptions(workflows.TaskWorkflow, wfOptions(constants.TaskWorkflowName))
	w.RegisterWorkflow(workflows.ResearchWorkflow)
	w.RegisterWorkflow(workflows.ContextQAWorkflow)
	w.RegisterWorkflow(workflows.URLSummaryWorkflow)
}

func registerActivities(w worker.Worker, acts *activities.Activities) {
	w.RegisterActivityWithOptions(acts.GenerateQueries, actOptions(constants.GenerateQueriesActivity))
	w.RegisterActivityWithOptions(acts.WebSearchWorker, actOptions(constants.WebSearchWorkerActivity))
	w.RegisterActivityWithOptions(acts.AcademicSearchWorker, actOptions(constants.AcademicSearchWorkerActivity))
	w.RegisterActivityWithOptions(acts.DocumentWorker, actOptions(constants.DocumentWorkerActivity))
	w.RegisterActivityWithOptions(acts.ReflectOnEvidence, actOptions(constants.ReflectOnEvidenceActivity))
	w.RegisterActivityWithOptions(acts.SynthesizeAnswer, actOptions(constants.SynthesizeAnswerActivity))
	w.RegisterActivityWithOptions(acts.AnswerFromContext, actOptions(constants.AnswerFromContextActivity))
	w.RegisterActivityWithOptions(acts.SummarizeURL, actOptions(constants.SummarizeURLActivity))
	w.RegisterActivityWithOptions(acts.UpdateSessionResult, actOptions(constants.UpdateSessionResultActivity))
	w.RegisterActivityWithOptions(acts.EmitTaskUpdate, actOptions(constants.EmitTaskUpdateActivity))
}

func wfOptions(name string) workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: name}
}

func actOptions(name string) activity.RegisterOptions {
	return activity.RegisterOptions{Name: name}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
