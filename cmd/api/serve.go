package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/handlers"
	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/repositories"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "port to listen on (overrides PORT)")
	viper.BindPFlag("PORT", serveCmd.Flags().Lookup("port"))
}

func serve(ctx context.Context) error {
	cfg := config.Load(viper.GetViper())

	logger, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	logger.Info("starting the cv-analyzer",
		zap.String("version", version),
		zap.String("env", cfg.Server.Env),
		zap.String("provider", cfg.Upstream.Provider),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the optional audit trail
	var audit services.AuditRecorder
	if cfg.Database.AuditEnabled {
		db, err := config.InitDatabase(cfg, logger)
		if err != nil {
			logger.Error("failed to initialize database", zap.Error(err))
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		audit = repositories.NewAuditRepository(db)
		logger.Info("audit trail enabled")
	}

	// Initialize the upstream client
	client, err := newAnalysisClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize analysis client", zap.Error(err))
		return err
	}

	analyzer := services.NewAnalyzerService(
		services.NewPDFParserService(),
		client,
		audit,
		cfg.Pipeline.RequestTimeout,
		logger,
	)

	app := handlers.NewApp(handlers.AppConfig{
		Normalizer: services.NewDocumentNormalizer(),
		Analyzer:   analyzer,
		Logger:     logger,
		BodyLimit:  cfg.Server.BodyLimit,
		AccessLog:  true,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newAnalysisClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.AnalysisClient, error) {
	switch cfg.Upstream.Provider {
	case config.ProviderHTTP:
		return services.NewHTTPAnalysisClient(&cfg.Upstream, log), nil
	case config.ProviderGemini:
		return services.NewGeminiService(ctx, cfg, log)
	default:
		return nil, errors.New("unknown upstream provider: " + cfg.Upstream.Provider)
	}
}
