package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

type AppConfig struct {
	Normalizer services.DocumentNormalizer
	Analyzer   services.AnalyzerService
	Logger     *zap.Logger
	BodyLimit  int
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp builds the fiber application with every route registered.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "CV Analyzer API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          2 * time.Minute,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(cfg.Logger),
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	analyzeHandler := NewAnalyzeHandler(cfg.Normalizer, cfg.Analyzer)
	trpcHandler := NewTRPCHandler(cfg.Normalizer, cfg.Analyzer)

	// Routes
	app.Get("/health", HandleHealth)
	app.Post("/analyze", analyzeHandler.HandleAnalyze)
	app.Post("/trpc/:procedure", trpcHandler.HandleMutation)
	app.Get("/trpc/:procedure", trpcHandler.HandleQuery)

	return app
}

// errorHandler is the last resort for anything the handlers did not render, panics
// included.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		log.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(models.ResultEnvelope{Error: errorMessage(err)})
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
