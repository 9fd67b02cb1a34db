package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"landsphere/server/config"
	"landsphere/server/internal/api"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/database"
	"landsphere/server/internal/geography"
	"landsphere/server/internal/market"
	"landsphere/server/internal/prediction"
	"landsphere/server/internal/search"
	"landsphere/server/internal/trading"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logger.WithError(err).Warn("Unknown log level, keeping info")
	} else {
		logger.SetLevel(level)
	}

	policy, err := trading.PolicyFromConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Invalid trading configuration")
	}

	// Initialize database
	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	ctx := context.Background()

	// The marketplace cannot run without its catalog
	cat, err := catalog.Load(ctx, db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog; run landsphere-admin import-catalog")
	}
	logger.WithField("records", cat.Len()).Info("Catalog loaded")

	engine := trading.NewEngine(db, cat, policy, logger)
	if _, err := engine.EnsureListings(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to seed listings")
	}

	index, err := geography.Build(cat)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build geography index")
	}

	services := api.Services{
		Trading:   engine,
		Search:    search.NewEngine(cat, db, logger),
		Market:    market.NewService(cat, index, db, logger),
		Geography: index,
	}
	if cfg.Prediction.URL != "" {
		client := prediction.NewClient(cfg.Prediction.URL, cfg.Prediction.Timeout, logger)
		services.Forecaster = prediction.NewForecaster(client, logger)
	} else {
		logger.Warn("PREDICTION_URL not set, price forecasts are disabled")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret(logger)
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	auth := api.NewAuthenticator(secret, cfg.Auth.TokenTTL)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(router, api.NewHandler(services, auth, logger))

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}

func randomSecret(logger *logrus.Logger) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.WithError(err).Fatal("Failed to generate token secret")
	}
	return hex.EncodeToString(buf)
}
