package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/auth"
	"github.com/freeeve/partycards/internal/config"
	"github.com/freeeve/partycards/internal/handler"
	"github.com/freeeve/partycards/internal/logger"
	"github.com/freeeve/partycards/internal/middleware"
	"github.com/freeeve/partycards/internal/repository/postgres"
	redisrepo "github.com/freeeve/partycards/internal/repository/redis"
	"github.com/freeeve/partycards/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("port", cfg.Port).Int64("buildVersion", cfg.BuildVersion).Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	gameRepo := postgres.NewGameRepo(db)
	packRepo := postgres.NewPackRepo(db)

	// Auth
	ids := auth.NewIdentityManager(cfg.IdentitySalt)
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// Services
	catalog := service.NewPackCatalog(packRepo, cfg.PackCacheTTL)
	gameSvc := service.NewGameService(gameRepo, catalog, redisClient, ids, cfg.BuildVersion)
	sched, err := service.NewScheduler(gameSvc, service.SchedulerConfig{
		RoundTimeoutGrace: cfg.RoundTimeoutGrace,
		AutoAdvanceDelay:  cfg.AutoAdvanceDelay,
		IdleKickDelay:     cfg.IdleKickDelay,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Scheduler start failed")
	}
	defer sched.Stop()
	gameSvc.SetTimers(sched)

	// WebSocket hub, fed by the pub/sub listener
	wsHub := handler.NewHub(sched)
	wsHub.SetPresence(redisClient)
	go func() {
		if err := redisClient.Listen(ctx, wsHub); err != nil {
			log.Error().Err(err).Msg("Pub/sub listener failed")
		}
	}()

	// Handlers
	gameHandler := handler.NewGameHandler(gameSvc)
	userHandler := handler.NewUserHandler(ids, jwtMgr)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, cfg.AllowOrigin)

	// Router
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"redis unavailable"}`))
			return
		}
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public
	mux.HandleFunc("POST /api/v1/user/register", userHandler.Register)

	// WebSocket (auth via query param token, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Identity-protected API routes
	api := http.NewServeMux()
	gameHandler.Routes(api)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", auth.Middleware()(api)))

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(cfg.AllowOrigin), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
