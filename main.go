package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"song-battle-system/handlers"
	"song-battle-system/middleware"
	"song-battle-system/models"
	"song-battle-system/services"
	"song-battle-system/utils"
	"song-battle-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Match{},
		&models.MatchmakingQueueEntry{},
		&models.PrivateRoom{},
		&models.TrackEloRecord{},
		&models.UserBalance{},
		&models.DemoBalance{},
		&models.BalanceTransaction{},
		&models.TournamentPool{},
		&models.TournamentParticipant{},
		&models.PlatformCounter{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cfg := utils.LoadGameConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the quick-match broadcast channel; without it pairing
	// degrades to queue-only matching.
	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	} else {
		log.Println("⚠️  REDIS_URL not set — quick-match broadcasts disabled, queue matching only")
	}

	oracle := services.NewOracleClient()
	payouts := workers.NewChainPayoutClient()
	sessions := services.NewSessionManager()

	settlementService := services.NewSettlementService(db, cfg)
	battleService := services.NewBattleService(oracle, cfg.BattleDuration)
	eloService := services.NewEloService(db, oracle)
	broadcastService := services.NewBroadcastService(rdb, sessions)
	matchService := services.NewMatchService(db, settlementService, battleService, payouts)
	matchmakingService := services.NewMatchmakingService(db, eloService, broadcastService, sessions, matchService, settlementService, cfg)
	roomService := services.NewRoomService(db, eloService, sessions, matchService, cfg)
	practiceService := services.NewPracticeService(oracle, eloService, matchService, sessions, cfg)
	tournamentService := services.NewTournamentService(db, settlementService, cfg)
	walletService := services.NewWalletService(settlementService, payouts)

	go broadcastService.Listen(ctx)
	eloService.StartRefreshScheduler()

	handlers.SetupBattleRoutes(app, matchmakingService, roomService, practiceService, matchService)
	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupWalletRoutes(app, settlementService, walletService, practiceService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
