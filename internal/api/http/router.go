package http

import (
	"github.com/EternisAI/cnc-server/internal/api/http/handler"
	"github.com/EternisAI/cnc-server/internal/api/http/middleware"
	"github.com/EternisAI/cnc-server/internal/auth"
	"github.com/EternisAI/cnc-server/internal/clients"
	"github.com/EternisAI/cnc-server/internal/commands"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Registry     *clients.Service
	Queue        *commands.Service
	ClientAuth   *auth.ClientAuthenticator
	OperatorAuth *auth.Service
	JWTSecret    string
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	clientHandler := handler.NewClientHandler(srvs.Registry, srvs.Queue)
	engine.POST("/client", clientHandler.Register)

	// Client routes past enrollment require the token header and an
	// approved client.
	protected := engine.Group("/client", middleware.ClientAuth(srvs.ClientAuth))
	protected.GET("/commands", clientHandler.FetchCommands)
	protected.PUT("/keys", clientHandler.UpdateKeys)

	authHandler := handler.NewAuthHandler(srvs.OperatorAuth)
	engine.POST("/auth/login", authHandler.Login)

	adminHandler := handler.NewAdminHandler(srvs.Registry, srvs.Queue)
	admin := engine.Group("/admin", middleware.JWTAuth(srvs.JWTSecret))
	admin.GET("/clients", adminHandler.ListClients)
	admin.POST("/clients/:id/approve", adminHandler.ApproveClient)
	admin.POST("/clients/:id/commands", adminHandler.CreateCommand)
}
