package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/fera765/chatstory/internal/background"
	"github.com/fera765/chatstory/internal/config"
	"github.com/fera765/chatstory/internal/encoder"
	"github.com/fera765/chatstory/internal/handler"
	"github.com/fera765/chatstory/internal/registry"
	"github.com/fera765/chatstory/internal/service"
	"github.com/fera765/chatstory/internal/worker"
	ws "github.com/fera765/chatstory/internal/websocket"
)

func main() {
	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.Storage.VideosDir, cfg.Storage.FramesDir, cfg.Storage.AssetsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	validate := validator.New()

	// WebSocket hub for live progress
	hub := ws.NewHub()
	go hub.Run()

	// Pipeline components
	jobRegistry := registry.New()
	fetcher := background.NewHTTPFetcher(cfg.Storage.AssetsDir)
	resolver := background.NewResolver(cfg.Storage.AssetsDir, cfg.FFmpeg.Bin, cfg.FFmpeg.ProbeBin, fetcher)
	ffmpegEncoder := encoder.NewFFmpegEncoder(cfg.FFmpeg.Bin)
	renderWorker := worker.NewRenderWorker(jobRegistry, resolver, ffmpegEncoder, hub, cfg)

	// Services
	renderService := service.NewRenderService(jobRegistry, renderWorker, cfg.Render)
	libraryService := service.NewLibraryService(cfg.Storage.VideosDir)

	// Handlers
	renderHandler := handler.NewRenderHandler(renderService, validate)
	videoHandler := handler.NewVideoHandler(libraryService)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB of messages is plenty
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/generate", renderHandler.Generate)
	api.Get("/status/:jobId", renderHandler.Status)
	api.Get("/videos", videoHandler.List)
	api.Get("/videos/:name", videoHandler.Download)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
