package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/application/payments"
	"github.com/solsight/paygate/internal/infrastructure/database"
	"github.com/solsight/paygate/internal/server/middleware"
	"github.com/solsight/paygate/internal/server/websocket"
	"github.com/solsight/paygate/pkg/config"
)

type Handlers struct {
	PaymentSvc payments.IPaymentService
	DB         *database.DBManager
	Logger     zerolog.Logger
	Config     *config.Config
	WsHub      *websocket.WsHub
}

func New(paymentSvc payments.IPaymentService, db *database.DBManager, logger zerolog.Logger, config *config.Config, wsHub *websocket.WsHub) *Handlers {
	return &Handlers{
		PaymentSvc: paymentSvc,
		DB:         db,
		Logger:     logger,
		Config:     config,
		WsHub:      wsHub,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(&h.Config.Security, h.Logger)
	mw.SetupMiddleware(router)

	paymentHandler := NewPaymentHandler(h.PaymentSvc, h.Logger)
	statusHandler := NewSessionStatusHandler(h.WsHub, h.Logger)
	healthHandler := NewHealthHandler(h.DB)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint for pushed session transitions
	router.GET("/status", mw.APIKeyMiddleware(), statusHandler.HandleWebSocket)

	v1 := router.Group("/v1", mw.APIKeyMiddleware())
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", paymentHandler.CreateSession)
			sessions.GET("/:session_id/payment", paymentHandler.CheckPayment)
			sessions.POST("/:session_id/settle", paymentHandler.Settle)
		}
	}
}
