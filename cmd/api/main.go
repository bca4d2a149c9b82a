package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/jd-matcher/internal/config"
	"alfredoptarigan/jd-matcher/internal/handlers"
	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/repositories"
	"alfredoptarigan/jd-matcher/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}
	log.Info("Config loaded successfully", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	store := repositories.NewStore(db)

	// Initialize storage
	storage, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
	}
	if err := storage.Prepare(ctx); err != nil {
		log.Fatal("Failed to prepare storage", "driver", cfg.Storage.Driver, "error", err)
	}
	log.Info("Storage initialized", "driver", cfg.Storage.Driver)

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Gemini.EmbedModel,
		Timeout:    cfg.Gemini.ScoringTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize Gemini AI", "error", err)
	}
	scorer, err := services.NewGeminiScorer(geminiService, cfg.Gemini.MaxRetries)
	if err != nil {
		log.Fatal("Failed to initialize scorer", "error", err)
	}
	log.Info("Gemini AI initialized", "model", geminiService.ModelName())

	deps := services.AnalysisDeps{
		Store:     store,
		Pipeline:  services.NewUploadPipeline(storage),
		Extractor: services.NewPDFParserService(),
		Scorer:    scorer,
		ModelName: geminiService.ModelName(),
		Log:       log,
	}

	// Optional resume index
	var worker services.IndexWorker
	if cfg.Qdrant.URL != "" {
		index, err := services.NewQdrantResumeIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, geminiService, log)
		if err != nil {
			log.Fatal("Failed to initialize Qdrant", "error", err)
		}
		if err := index.InitCollection(ctx); err != nil {
			log.Fatal("Failed to initialize Qdrant collection", "error", err)
		}
		worker = services.NewIndexWorker(store, index, cfg.Worker.Concurrency, log)
		worker.Start(ctx)
		deps.Index = index
		deps.Indexer = worker
		log.Info("Resume index enabled", "collection", cfg.Qdrant.Collection)
	} else {
		log.Info("QDRANT_URL not set, resume search disabled")
	}

	// Optional analysis cache
	if cfg.Redis.Addr != "" {
		cache, err := services.NewRedisAnalysisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.TTL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		}
		defer cache.Close()
		deps.Cache = cache
		log.Info("Analysis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	// Optional event publishing
	if cfg.RabbitMQ.URL != "" {
		notifier, err := services.NewAMQPNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		defer notifier.Close()
		deps.Notifier = notifier
		log.Info("Analysis events enabled", "exchange", cfg.RabbitMQ.Exchange)
	}

	analysisService := services.NewAnalysisService(deps)
	uploads := handlers.NewUploadValidator(cfg.Storage.MaxFileSize, cfg.Storage.MaxFiles)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "JD Matcher API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    cfg.Storage.BodyLimit(),
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if cfg.Storage.Driver == "local" {
		app.Static(cfg.Storage.PublicPath, cfg.Storage.UploadPath)
	}

	handlers.RegisterHealthRoutes(app, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	// Routes
	handlers.RegisterRoutes(app, analysisService, uploads, log)
	handlers.RegisterRoutes(app.Group("/api/v1"), analysisService, uploads, log)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("Server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}

	if worker != nil {
		worker.Stop()
	}
}

func newStorage(ctx context.Context, cfg *config.Config) (services.StorageService, error) {
	if cfg.Storage.Driver == "s3" {
		return services.NewS3Storage(ctx, services.S3Options{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			PublicURL: cfg.Storage.S3.PublicURL,
		})
	}
	return services.NewLocalStorage(cfg.Storage.UploadPath, cfg.Storage.PublicPath), nil
}
