package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/application/payments"
	"github.com/solsight/paygate/internal/domain"
)

type PaymentHandler struct {
	paymentService payments.IPaymentService
	logger         zerolog.Logger
}

func NewPaymentHandler(paymentService payments.IPaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

type createSessionRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

func (h *PaymentHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	view, err := h.paymentService.CreateSession(c.Request.Context(), req.SubjectID, domain.SessionKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConfiguration):
			h.logger.Error().Err(err).Msg("Session creation rejected by configuration")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service Unavailable",
				"message": "Payment engine is not configured",
			})
		case errors.Is(err, domain.ErrInvalidKind):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": err.Error(),
			})
		default:
			// Anything past validation (keypair mint, durable persist) is an
			// internal failure, not the caller's.
			h.logger.Error().Err(err).Str("subject_id", req.SubjectID).Msg("Session creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to create session",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *PaymentHandler) CheckPayment(c *gin.Context) {
	sessionID := c.Param("session_id")

	result, err := h.paymentService.CheckPayment(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Payment check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to check payment",
		})
		return
	}

	status := http.StatusOK
	if result.State == domain.PaymentStateNotFound {
		status = http.StatusNotFound
	}
	c.JSON(status, result)
}

func (h *PaymentHandler) Settle(c *gin.Context) {
	sessionID := c.Param("session_id")

	result, err := h.paymentService.Settle(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Unknown payment session",
			})
		case errors.Is(err, domain.ErrNotPayable):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Session is not in a payable state",
			})
		default:
			// Fatal settlement conditions stay out of the response body; the
			// payment already succeeded from the payer's perspective and the
			// details are for the operator log.
			h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Settlement failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to settle session",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
