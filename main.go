package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"report-hub/config"
	"report-hub/controllers"
	db "report-hub/database"
	"report-hub/gcs"
	"report-hub/logger"
	"report-hub/metrics"
	middlewares "report-hub/middleware"
	"report-hub/routes"
	"report-hub/services"
	"report-hub/uploads"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	Version     = "0.1.0"
	serviceName = "report-hub"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var memory bool

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the report HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(memory)
		},
	}
	serve.Flags().BoolVar(&memory, "memory", false, "Keep reports in memory instead of MongoDB")

	root := &cobra.Command{
		Use:   serviceName,
		Short: "Facilities issue reporting service",
		Long: `report-hub accepts facility issue reports (heading, description, concern,
building and an optional photo), stores them in MongoDB and serves them back
as a list and as a board that groups reports about the same building and concern.`,
		RunE:          serve.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove uploaded files no report refers to, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", serviceName, Version)
		},
	})
	return root
}

// app bundles what both serve and sweep need.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	mongo   *db.Mongo
	repo    services.ReportRepository
	files   uploads.FileStore
	metrics *metrics.Metrics
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func setup(ctx context.Context, memory bool) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
			Release:     serviceName + "@" + Version,
		}); err != nil {
			log.Error("sentry init failed", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { sentry.Flush(2 * time.Second) })
		}
	}

	if memory {
		log.Warn("running with in-memory report storage; reports are lost on exit")
		a.repo = db.NewMemoryReportRepository()
	} else {
		m, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.DBTimeout, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mongo = m
		a.closers = append(a.closers, m.Disconnect)

		coll := m.OpenCollection(cfg.MongoCollection)
		ictx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		if err := db.EnsureReportIndexes(ictx, coll); err != nil {
			log.Warn("index creation failed", zap.Error(err))
		}
		cancel()
		a.repo = db.NewMongoReportRepository(coll, cfg.DBTimeout)
	}

	if cfg.RedisAddr != "" {
		client := db.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, listing cache will retry per request", zap.Error(err))
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.repo = db.NewCachedReportRepository(a.repo, client, cfg.ListingCacheTTL, log)
		log.Info("listing cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.ListingCacheTTL))
	}

	switch cfg.UploadBackend {
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx, cfg.GCSBucket, cfg.GCSCredentials, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.files = uploads.NewGCSStore(client, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		store, err := uploads.NewLocalStore(cfg.UploadDir, "/uploads/")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.files = store
	}
	return a, nil
}

func (a *app) sweeper() *services.OrphanSweeper {
	lister, ok := a.files.(uploads.Lister)
	if !ok {
		return nil
	}
	return services.NewOrphanSweeper(a.repo, lister, a.cfg.OrphanGrace, a.metrics, a.log)
}

func runServe(memory bool) error {
	a, err := setup(context.Background(), memory)
	if err != nil {
		return err
	}
	defer a.Close()

	if sw := a.sweeper(); sw != nil && a.cfg.OrphanSweepSchedule != "" {
		c, err := sw.Schedule(a.cfg.OrphanSweepSchedule, 5*time.Minute)
		if err != nil {
			return err
		}
		defer c.Stop()
		a.log.Info("orphan sweep scheduled", zap.String("schedule", a.cfg.OrphanSweepSchedule))
	}

	svc := services.NewReportService(a.repo, a.files, a.cfg.UploadMaxBytes, a.metrics, a.log)

	var pinger controllers.Pinger
	if a.mongo != nil {
		pinger = a.mongo
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(middlewares.Recovery(a.log), middlewares.ErrorTracking(), middlewares.RequestLogger(a.log))
	routes.SetupRoutes(r, a.cfg, routes.Handlers{
		Reports: controllers.NewReportController(svc, a.cfg.PlaceholderImage, a.log),
		Health:  controllers.NewHealthController(pinger),
		Metrics: a.metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	a.log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error("server shutdown error", zap.Error(err))
	}
	a.log.Info("server stopped")
	return nil
}

func runSweep(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sw := a.sweeper()
	if sw == nil {
		return errors.New("upload backend cannot list its files")
	}
	removed, err := sw.Sweep(ctx)
	if err != nil {
		return err
	}
	for _, name := range removed {
		fmt.Println(name)
	}
	return nil
}
