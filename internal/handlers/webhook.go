package handlers

import (
	"qirsh/internal/services/ledger"
	"qirsh/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives asynchronous payment notifications from the
// gateway.
type WebhookHandler struct {
	ledgerService ledger.Service
}

func NewWebhookHandler(ledgerService ledger.Service) *WebhookHandler {
	return &WebhookHandler{
		ledgerService: ledgerService,
	}
}

// HandleGatewayCallback processes a payment notification. The response is
// always 200 with accepted:true so the gateway stops redelivering; what
// actually happened is recorded internally per delivery.
func (h *WebhookHandler) HandleGatewayCallback(c *fiber.Ctx) error {
	signature := c.Query("hmac")

	result := h.ledgerService.HandleCallback(c.Context(), c.Body(), signature)

	return utils.Success(c, result)
}
