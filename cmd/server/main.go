package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/database"
	"stockledger/internal/messaging"
	"stockledger/internal/router"
	"stockledger/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", true)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := database.InitDB(ctx, cfg.DSN(), database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		SchemaPath:   cfg.DBSchemaPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	var publisher messaging.LedgerPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		utils.LogInfo("Ledger events enabled", map[string]interface{}{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic})
	} else {
		publisher = messaging.NewNoopPublisher()
		utils.LogInfo("KAFKA_BROKERS not set, ledger events disabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			utils.LogError(err, "Failed to close ledger event publisher")
		}
	}()

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), utils.RequestID(), utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", utils.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{utils.RequestIDHeader}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Setup(engine, router.Dependencies{
		DB:               db,
		Publisher:        publisher,
		TokenIssuer:      utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		OperationTimeout: cfg.OperationTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server forced to shutdown")
	}
}
