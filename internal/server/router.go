package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/konsulo/konsulo-backend/internal/access"
	"github.com/konsulo/konsulo-backend/internal/handlers"
	"github.com/konsulo/konsulo-backend/internal/middleware"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type RouterConfig struct {
	AuthMiddleware     *middleware.AuthMiddleware
	HealthcheckHandler *handlers.HealthcheckHandler
	AccountHandler     *handlers.AccountHandler
	ConsultantHandler  *handlers.ConsultantHandler
	EnterpriseHandler  *handlers.EnterpriseHandler
	BookingHandler     *handlers.BookingHandler
	WalletHandler      *handlers.WalletHandler
	AdminHandler       *handlers.AdminHandler
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("konsulo-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5174"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "x-user-email"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	api := router.Group("/api")
	{
		api.GET("/consultants", cfg.ConsultantHandler.ListVerified)
		api.GET("/enterprises/invites/:token", cfg.EnterpriseHandler.LookupInvite)
		api.POST("/enterprises/members/first-login", cfg.EnterpriseHandler.MemberFirstLogin)
		api.POST("/admin/signup", cfg.AdminHandler.Signup)
		api.POST("/admin/login", cfg.AdminHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Account
	protected.GET("/me", cfg.AccountHandler.GetMe)
	protected.PATCH("/me", cfg.AccountHandler.UpdateMe)
	// Consultant onboarding
	protected.POST("/consultants/profile", cfg.ConsultantHandler.CreateProfile)
	// Wallet
	protected.GET("/wallet", cfg.WalletHandler.Get)
	protected.POST("/wallet/topup", cfg.WalletHandler.Topup)
	protected.GET("/wallet/transactions", cfg.WalletHandler.Transactions)
	// Bookings
	protected.POST("/bookings", cfg.BookingHandler.Create)
	protected.GET("/bookings", cfg.BookingHandler.ListMine)
	protected.POST("/bookings/:id/cancel", cfg.BookingHandler.Cancel)

	// Consultant-only
	consultant := protected.Group("/")
	consultant.Use(cfg.AuthMiddleware.RequireRole(access.HasRole(types.RoleConsultant)))
	consultant.POST("/consultants/documents", cfg.ConsultantHandler.SubmitDocument)
	consultant.GET("/bookings/consultant", cfg.BookingHandler.ListForConsultant)
	consultant.POST("/bookings/:id/complete", cfg.BookingHandler.Complete)

	// Enterprise owners
	protected.POST("/enterprises", cfg.EnterpriseHandler.Create)
	owner := protected.Group("/")
	owner.Use(cfg.AuthMiddleware.RequireRole(access.HasRole(types.RoleEnterpriseOwner)))
	owner.GET("/enterprises/mine", cfg.EnterpriseHandler.GetOwned)
	owner.POST("/enterprises/:id/members", cfg.EnterpriseHandler.InviteMember)

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/api/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	admin.GET("/verifications/pending", cfg.AdminHandler.PendingOverview)
	admin.GET("/consultants/pending", cfg.AdminHandler.PendingConsultants)
	admin.POST("/consultants/:id/verify", cfg.AdminHandler.VerifyConsultant)
	admin.GET("/enterprises/pending", cfg.AdminHandler.PendingEnterprises)
	admin.POST("/enterprises/:id/verify", cfg.AdminHandler.VerifyEnterprise)

	return router
}
