package http

import (
	"github.com/gin-gonic/gin"

	"github.com/rumsan/gatekeeper/ability"
	"github.com/rumsan/gatekeeper/service"
	"github.com/rumsan/gatekeeper/settings"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, settingsService *settings.Service) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, settingsService)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/otp", handlers.RequestOTP)
		auth.POST("/login", handlers.LoginOTP)
		auth.POST("/wallet", handlers.WalletChallenge)
		auth.POST("/wallet/login", handlers.LoginWallet)
		auth.POST("/google", handlers.LoginGoogle)
	}

	// Public settings lookup, no token required
	router.GET("/settings/:name", handlers.PublicSetting)

	// Protected API routes
	app := router.Group("/app")
	app.Use(AuthMiddleware(authService))
	{
		app.GET("/me", handlers.Me)

		app.GET("/settings",
			RequireAbility(ability.ActionRead, "setting"), handlers.ListSettings)
		app.GET("/settings/:name",
			RequireAbility(ability.ActionRead, "setting"), handlers.GetSetting)
		app.POST("/settings",
			RequireAbility(ability.ActionCreate, "setting"), handlers.CreateSetting)
		app.PUT("/settings/:name",
			RequireAbility(ability.ActionUpdate, "setting"), handlers.UpdateSetting)
	}

	return router
}
