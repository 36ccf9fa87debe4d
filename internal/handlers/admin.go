package handlers

import (
	"errors"

	"qirsh/internal/repositories"
	"qirsh/internal/services/ledger"
	"qirsh/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes the operator endpoints: balance corrections,
// freezes and manual resolution of stuck deposits.
type AdminHandler struct {
	ledgerService ledger.Service
}

func NewAdminHandler(ledgerService ledger.Service) *AdminHandler {
	return &AdminHandler{
		ledgerService: ledgerService,
	}
}

func (h *AdminHandler) AdjustBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	ownerID, err := c.ParamsInt("ownerId")
	if err != nil || ownerID < 1 {
		return utils.BadRequest(c, "invalid owner id")
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
		Reason string          `json:"reason"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	result, err := h.ledgerService.AdjustBalance(c.Context(), uint(ownerID), input.Amount, input.Reason, claims.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrReasonRequired):
			return utils.BadRequest(c, "a reason is required for balance adjustments")
		case errors.Is(err, repositories.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be non-zero")
		case errors.Is(err, repositories.ErrNegativeBalance):
			return utils.BadRequest(c, "adjustment would make the balance negative")
		}
		return utils.InternalError(c, "failed to adjust balance")
	}

	return utils.Success(c, result)
}

// CompleteTransaction force-resolves a pending deposit that an operator
// verified out-of-band.
func (h *AdminHandler) CompleteTransaction(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return utils.BadRequest(c, "invalid transaction id")
	}

	record, err := h.ledgerService.CompleteManually(c.Context(), uint(id), claims.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTransactionNotFound):
			return utils.NotFound(c, "transaction not found")
		case errors.Is(err, ledger.ErrNotPendingDeposit):
			return utils.BadRequest(c, "only deposits can be completed manually")
		case errors.Is(err, ledger.ErrTransactionResolved):
			return utils.Conflict(c, "transaction is already resolved")
		}
		return utils.InternalError(c, "failed to complete transaction")
	}

	return utils.Success(c, fiber.Map{
		"transaction": record,
	})
}

func (h *AdminHandler) FreezeWallet(c *fiber.Ctx) error {
	ownerID, err := c.ParamsInt("ownerId")
	if err != nil || ownerID < 1 {
		return utils.BadRequest(c, "invalid owner id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	wallet, err := h.ledgerService.FreezeWallet(c.Context(), uint(ownerID), input.Reason)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to freeze wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": wallet,
	})
}

func (h *AdminHandler) UnfreezeWallet(c *fiber.Ctx) error {
	ownerID, err := c.ParamsInt("ownerId")
	if err != nil || ownerID < 1 {
		return utils.BadRequest(c, "invalid owner id")
	}

	wallet, err := h.ledgerService.UnfreezeWallet(c.Context(), uint(ownerID))
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to unfreeze wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": wallet,
	})
}

// GetWallet returns any owner's wallet for support investigation.
func (h *AdminHandler) GetWallet(c *fiber.Ctx) error {
	ownerID, err := c.ParamsInt("ownerId")
	if err != nil || ownerID < 1 {
		return utils.BadRequest(c, "invalid owner id")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), uint(ownerID))
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": wallet,
	})
}

func (h *AdminHandler) GetWalletStats(c *fiber.Ctx) error {
	stats, err := h.ledgerService.GetWalletStats(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to get wallet stats")
	}

	return utils.Success(c, stats)
}

// LookupTransaction resolves a transaction by its number for support.
func (h *AdminHandler) LookupTransaction(c *fiber.Ctx) error {
	record, err := h.ledgerService.GetTransactionByNumber(c.Context(), c.Params("number"))
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		return utils.InternalError(c, "failed to get transaction")
	}

	return utils.Success(c, fiber.Map{
		"transaction": record,
	})
}
