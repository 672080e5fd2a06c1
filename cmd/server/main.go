package main

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/handlers"
	"github.com/punchking466/workchat-backend-v2/internal/handlers/ws"
	applog "github.com/punchking466/workchat-backend-v2/internal/log"
	"github.com/punchking466/workchat-backend-v2/internal/metrics"
	"github.com/punchking466/workchat-backend-v2/internal/middleware"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"github.com/punchking466/workchat-backend-v2/internal/service"
	"github.com/punchking466/workchat-backend-v2/internal/storage"
)

func main() {
	logger := applog.Init(os.Getenv("APP_ENV"))

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName: "WorkChat Backend",
		// Image messages arrive base64-encoded; allow 10MB payloads + overhead.
		BodyLimit: 16 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(metrics.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	db, err := repository.InitDB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, running without cache")
		redisCache = nil
	} else {
		logger.Info().Str("addr", redisAddr).Msg("redis connected")
	}

	unreadCache := cache.NewUnreadCache(redisCache)
	presence := cache.NewPresenceDirectory(redisCache)
	roomListCache := cache.NewRoomListCache(redisCache)

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	roomService := service.NewRoomService(roomRepo, membershipRepo, messageRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, membershipRepo, roomRepo, unreadCache)

	hub := ws.NewHub(presence, logger)
	router := service.NewNotificationRouter(membershipRepo, userRepo, unreadCache, presence, roomListCache, hub, logger)

	// S3/MinIO storage is best-effort; media endpoints return 503 if missing.
	var media *storage.MediaStore
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		logger.Warn().Err(err).Msg("s3 storage not configured")
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		logger.Warn().Err(err).Msg("failed to initialize s3 storage")
	} else {
		media = storage.NewMediaStore(st)
		logger.Info().Str("bucket", cfg.Bucket).Msg("s3 storage initialized")
	}

	wsHandler := handlers.NewWebSocketHandler(roomService, messageService, router, hub, presence, logger)
	roomHandler := handlers.NewRoomHandler(roomService, messageService, router, roomListCache, hub, logger)
	messageHandler := handlers.NewMessageHandler(messageService, roomService, router, media, logger)
	mediaHandler := handlers.NewMediaHandler(media, logger)
	userHandler := handlers.NewUserHandler(userRepo)

	api := app.Group("/api", middleware.AuthRequired())

	api.Post("/group/rooms", roomHandler.CreateGroup)
	api.Post("/private/rooms", roomHandler.CreatePrivate)
	api.Get("/:kind/rooms", roomHandler.RoomList)

	api.Get("/:kind/rooms/:id/messages", messageHandler.List)
	api.Post("/:kind/rooms/:id/messages", limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Params("kind") + ":" + c.IP()
		},
	}), messageHandler.Send)
	api.Post("/:kind/rooms/:id/read", messageHandler.MarkRead)
	api.Delete("/:kind/rooms/:id/membership", roomHandler.Leave)
	api.Get("/:kind/rooms/:id/members", roomHandler.Members)
	api.Get("/:kind/rooms/:id/notification", roomHandler.GetNotification)
	api.Put("/:kind/rooms/:id/notification", roomHandler.SetNotification)

	api.Post("/group/rooms/:id/members", roomHandler.AddMembers)
	api.Delete("/group/rooms/:id/members/:userId", roomHandler.Kick)

	api.Get("/me/notification-settings", userHandler.GetNotificationSettings)
	api.Put("/me/notification-settings", userHandler.SetNotificationSettings)

	api.Get("/media/*", mediaHandler.Get)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("server starting")
	if err := app.Listen(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
