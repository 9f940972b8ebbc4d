package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/konsulo/konsulo-backend/internal/cache"
	"github.com/konsulo/konsulo-backend/internal/db"
	"github.com/konsulo/konsulo-backend/internal/handlers"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/middleware"
	"github.com/konsulo/konsulo-backend/internal/observability"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/server"
	"github.com/konsulo/konsulo-backend/internal/services"
	"github.com/konsulo/konsulo-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "konsulo-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	adminSecretKey := utils.GetEnv("JWT_ADMIN_SECRET", "", log)
	if adminSecretKey == "" {
		log.Error("JWT_ADMIN_SECRET is required")
		os.Exit(1)
	}
	adminSessionTTL := utils.GetEnvAsInt("ADMIN_SESSION_TTL", 3600, log)
	port := utils.GetEnv("PORT", "8080", log)

	authMode := services.AuthModeProduction
	if strings.EqualFold(utils.GetEnv("AUTH_MODE", "production", log), string(services.AuthModeDegradedFallback)) {
		authMode = services.AuthModeDegradedFallback
		log.Warn("Running in degraded fallback auth mode: trusting x-user-email header")
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional)
	redisClient, err := cache.NewRedisClient(log)
	if err != nil {
		log.Warn("Redis init failed, identity cache disabled", "error", err)
		redisClient = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	accountRepo := repos.NewAccountRepo(thePG, log)
	adminRepo := repos.NewAdminRepo(thePG, log)
	consultantRepo := repos.NewConsultantRepo(thePG, log)
	enterpriseRepo := repos.NewEnterpriseRepo(thePG, log)
	bookingRepo := repos.NewBookingRepo(thePG, log)
	walletRepo := repos.NewWalletRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService, uploads disabled", "error", err)
	}
	var avatarService services.AvatarService
	if bucketService != nil {
		avatarService, err = services.NewAvatarService(log, accountRepo, bucketService)
		if err != nil {
			log.Warn("Could not init AvatarService, avatars disabled", "error", err)
		}
	}

	var tokenVerifier services.TokenVerifier
	if authMode == services.AuthModeProduction {
		discoveryURL := utils.GetEnv("OIDC_DISCOVERY_URL", "", log)
		allowedIss := splitCSV(utils.GetEnv("OIDC_ALLOWED_ISSUERS", "", log))
		requiredAud := utils.GetEnv("OIDC_REQUIRED_AUDIENCE", "", log)
		tokenVerifier, err = services.NewOIDCTokenVerifier(&http.Client{Timeout: 10 * time.Second}, discoveryURL, allowedIss, requiredAud)
		if err != nil {
			log.Error("Could not init token verifier", "error", err)
			os.Exit(1)
		}
	}

	identityService := services.NewIdentityService(thePG, log, accountRepo, walletRepo, avatarService, redisClient)
	adminAuthService := services.NewAdminAuthService(thePG, log, adminRepo, adminSecretKey, time.Duration(adminSessionTTL)*time.Second)
	verificationService := services.NewVerificationService(thePG, log, consultantRepo, enterpriseRepo)
	accountService := services.NewAccountService(thePG, log, accountRepo, avatarService)
	consultantService := services.NewConsultantService(thePG, log, consultantRepo, accountRepo, bucketService)
	enterpriseService := services.NewEnterpriseService(thePG, log, enterpriseRepo, accountRepo, walletRepo)
	walletService := services.NewWalletService(thePG, log, walletRepo)
	bookingService := services.NewBookingService(thePG, log, bookingRepo, consultantRepo, walletRepo)

	// Middleware + Handlers
	authMiddleware := middleware.NewAuthMiddleware(log, authMode, tokenVerifier, identityService, adminAuthService)
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:     authMiddleware,
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
		AccountHandler:     handlers.NewAccountHandler(accountService),
		ConsultantHandler:  handlers.NewConsultantHandler(consultantService),
		EnterpriseHandler:  handlers.NewEnterpriseHandler(enterpriseService),
		BookingHandler:     handlers.NewBookingHandler(bookingService),
		WalletHandler:      handlers.NewWalletHandler(walletService),
		AdminHandler:       handlers.NewAdminHandler(adminAuthService, verificationService),
		AllowOrigins:       splitCSV(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)),
	})

	log.Info("Starting server", "port", port, "auth_mode", string(authMode))
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
