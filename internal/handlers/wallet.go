package handlers

import (
	"errors"

	"qirsh/internal/models"
	"qirsh/internal/repositories"
	"qirsh/internal/services/gateway"
	"qirsh/internal/services/ledger"
	"qirsh/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{
		ledgerService: ledgerService,
	}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.OwnerID)
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": wallet,
	})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.ledgerService.GetBalance(c.Context(), claims.OwnerID)
	if err != nil {
		return utils.InternalError(c, "failed to get balance")
	}

	return utils.Success(c, fiber.Map{
		"balance": balance,
	})
}

func (h *WalletHandler) InitiateDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"payment_method"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return utils.BadRequest(c, "amount must be greater than 0")
	}
	if input.Method == "" {
		input.Method = gateway.MethodCard
	}

	customer := gateway.Customer{
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Phone:       claims.Phone,
	}

	result, err := h.ledgerService.InitiateDeposit(c.Context(), claims.OwnerID, input.Amount, input.Method, customer)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrWalletFrozen):
			return utils.Forbidden(c, "wallet is frozen")
		case errors.Is(err, repositories.ErrBalanceCeiling):
			return utils.BadRequest(c, "deposit would exceed the wallet limit")
		case errors.Is(err, repositories.ErrInvalidAmount):
			return utils.BadRequest(c, "invalid amount")
		case errors.Is(err, ledger.ErrDepositInitFailed):
			return utils.Respond(c, fiber.StatusBadGateway, fiber.Map{"error": "payment provider unavailable, please retry"})
		}
		return utils.InternalError(c, "failed to initiate deposit")
	}

	return utils.Success(c, result)
}

func (h *WalletHandler) ProcessPurchase(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount        decimal.Decimal `json:"amount"`
		ReferenceType string          `json:"reference_type"`
		ReferenceID   string          `json:"reference_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return utils.BadRequest(c, "amount must be greater than 0")
	}

	result, err := h.ledgerService.ProcessPurchase(c.Context(), claims.OwnerID, input.Amount, input.ReferenceType, input.ReferenceID)
	if err != nil {
		return utils.InternalError(c, "failed to process purchase")
	}

	// Insufficient balance and frozen wallets come back as a structured
	// outcome, not an HTTP error.
	return utils.Success(c, result)
}

func (h *WalletHandler) ProcessRefund(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount        decimal.Decimal `json:"amount"`
		ReferenceType string          `json:"reference_type"`
		ReferenceID   string          `json:"reference_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return utils.BadRequest(c, "amount must be greater than 0")
	}

	record, err := h.ledgerService.ProcessRefund(c.Context(), claims.OwnerID, input.Amount, input.ReferenceType, input.ReferenceID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletFrozen) {
			return utils.Forbidden(c, "wallet is frozen")
		}
		return utils.InternalError(c, "failed to process refund")
	}

	return utils.Success(c, fiber.Map{
		"transaction": record,
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	pagination := utils.GetPagination(c, 1, ledger.DefaultListPageSize)

	records, total, err := h.ledgerService.ListTransactions(c.Context(), claims.OwnerID, ledger.ListFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   pagination.Page,
		Limit:  pagination.Limit,
	})
	if err != nil {
		return utils.InternalError(c, "failed to list transactions")
	}

	pagination.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(records, pagination))
}

func (h *WalletHandler) GetTransaction(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	record, err := h.ledgerService.GetTransactionByNumber(c.Context(), c.Params("number"))
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		return utils.InternalError(c, "failed to get transaction")
	}

	// Customers only see their own ledger; operators see everything.
	if !claims.IsAdmin() {
		wallet, err := h.ledgerService.GetWallet(c.Context(), claims.OwnerID)
		if err != nil {
			return utils.InternalError(c, "failed to get wallet")
		}
		if record.WalletID != wallet.ID {
			return utils.NotFound(c, "transaction not found")
		}
	}

	return utils.Success(c, fiber.Map{
		"transaction": record,
	})
}

// SyncTransaction re-checks a pending deposit against the payment
// provider. It is the customer-facing fallback for lost webhooks.
func (h *WalletHandler) SyncTransaction(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	record, err := h.ledgerService.GetTransactionByNumber(c.Context(), c.Params("number"))
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		return utils.InternalError(c, "failed to get transaction")
	}

	// Ownership check before touching the gateway.
	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.OwnerID)
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}
	if record.WalletID != wallet.ID {
		return utils.NotFound(c, "transaction not found")
	}

	result, err := h.ledgerService.SyncTransactionStatus(c.Context(), record.ID)
	if err != nil {
		return utils.InternalError(c, "failed to sync transaction")
	}

	return utils.Success(c, result)
}
