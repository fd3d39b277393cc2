package http

import (
	"errors"
	"net/http"
	"strconv"

	"points-wallet/pkg/logger"
	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/usecase"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	walletUseCase usecase.WalletUseCase
	logger        *logger.Logger
}

func NewWalletHandler(walletUseCase usecase.WalletUseCase, logger *logger.Logger) *WalletHandler {
	return &WalletHandler{
		walletUseCase: walletUseCase,
		logger:        logger,
	}
}

// isRuleError reports whether err is a business-rule rejection rather than an
// infrastructure failure. Rule rejections become inline 4xx responses so the
// console can render them without a generic error page.
func isRuleError(err error) bool {
	for _, ruleErr := range []error{
		entity.ErrInvalidAmount,
		entity.ErrInsufficientBalance,
		entity.ErrAllocationPoolNotFound,
		entity.ErrOrganicQuotaNotExhausted,
		entity.ErrPurchaseLimitExceeded,
		entity.ErrUnknownSKU,
		entity.ErrInvalidDuration,
		entity.ErrEntryNotFound,
		entity.ErrNotRefundable,
	} {
		if errors.Is(err, ruleErr) {
			return true
		}
	}
	return false
}

func (h *WalletHandler) rejectOrFail(c *gin.Context, err error) {
	if isRuleError(err) {
		status := http.StatusBadRequest
		if errors.Is(err, entity.ErrEntryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	h.logger.Error("Wallet operation failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error, try again later"})
}

// GetWallet godoc
// @Summary      Get wallet
// @Description  Get the points balance and lifetime totals for the authenticated business
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Wallet
// @Router       /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	businessID := c.GetString("business_id")

	wallet, err := h.walletUseCase.GetWallet(businessID)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// GetWalletSummary godoc
// @Summary      Get wallet summary
// @Description  Balance, lifetime totals and purchase eligibility flags
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usecase.WalletSummary
// @Router       /wallet/summary [get]
func (h *WalletHandler) GetWalletSummary(c *gin.Context) {
	businessID := c.GetString("business_id")

	summary, err := h.walletUseCase.GetWalletSummary(businessID)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type RedemptionRequest struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	BusinessID  string `json:"business_id" binding:"required"`
	Points      int    `json:"points" binding:"required,min=1"`
	RewardTitle string `json:"reward_title" binding:"required"`
}

// OnCustomerRedemption godoc
// @Summary      Credit points for a customer redemption
// @Description  Called by the redemption flow when a customer redeems a reward; credits the business wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RedemptionRequest true "Redemption details"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /internal/redemptions [post]
func (h *WalletHandler) OnCustomerRedemption(c *gin.Context) {
	var req RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	credited, err := h.walletUseCase.OnCustomerRedemption(req.CustomerID, req.BusinessID, req.Points, req.RewardTitle)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "credited": credited})
}

type PurchaseSlotsRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

// PurchaseSlots godoc
// @Summary      Purchase extra participant slots
// @Description  Spends points on paid participant slots once the organic quota is exhausted
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PurchaseSlotsRequest true "Slot count"
// @Success      200  {object}  usecase.SlotPurchaseResult
// @Failure      400  {object}  map[string]interface{}
// @Router       /wallet/purchases/slots [post]
func (h *WalletHandler) PurchaseSlots(c *gin.Context) {
	businessID := c.GetString("business_id")

	var req PurchaseSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.walletUseCase.PurchaseParticipantSlots(businessID, req.Count)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "purchase": result})
}

type PurchaseBoostRequest struct {
	Duration string `json:"duration" binding:"required,oneof=24h 7d"`
}

// PurchaseBoost godoc
// @Summary      Purchase a visibility boost
// @Description  Spends points on a 24h or 7d visibility boost
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PurchaseBoostRequest true "Boost duration"
// @Success      200  {object}  usecase.FeaturePurchaseResult
// @Failure      400  {object}  map[string]interface{}
// @Router       /wallet/purchases/boost [post]
func (h *WalletHandler) PurchaseBoost(c *gin.Context) {
	businessID := c.GetString("business_id")

	var req PurchaseBoostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.walletUseCase.PurchaseVisibilityBoost(businessID, req.Duration)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "purchase": result})
}

type PurchaseFeatureRequest struct {
	SKU string `json:"sku" binding:"required"`
}

// PurchaseFeature godoc
// @Summary      Purchase a premium feature
// @Description  Spends points on a timed premium feature (analytics, featured placement, priority support)
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PurchaseFeatureRequest true "Feature SKU"
// @Success      200  {object}  usecase.FeaturePurchaseResult
// @Failure      400  {object}  map[string]interface{}
// @Router       /wallet/purchases/feature [post]
func (h *WalletHandler) PurchaseFeature(c *gin.Context) {
	businessID := c.GetString("business_id")

	var req PurchaseFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.walletUseCase.PurchaseFeature(businessID, entity.SKU(req.SKU))
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "purchase": result})
}

type RefundRequest struct {
	EntryID string `json:"entry_id" binding:"required"`
	Reason  string `json:"reason"`
}

// RefundSlots godoc
// @Summary      Refund a slot purchase
// @Description  Credits back a slot purchase whose slots are still unused and returns them to the pool
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RefundRequest true "Entry to refund"
// @Success      200  {object}  entity.Wallet
// @Failure      400  {object}  map[string]interface{}
// @Router       /wallet/refunds [post]
func (h *WalletHandler) RefundSlots(c *gin.Context) {
	businessID := c.GetString("business_id")

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	wallet, err := h.walletUseCase.RefundParticipantSlots(businessID, req.EntryID, req.Reason)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": wallet})
}

// GetTransactions godoc
// @Summary      Get transaction history
// @Description  Ledger entries for the authenticated business, most recent first
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Number of entries (max 100)"
// @Success      200  {object}  map[string]interface{}
// @Router       /wallet/transactions [get]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	businessID := c.GetString("business_id")
	limit := 50

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	entries, err := h.walletUseCase.GetTransactions(businessID, limit)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries, "count": len(entries)})
}

// ExportStatement godoc
// @Summary      Export ledger statement
// @Description  Uploads the full ledger as CSV and returns a time-limited download URL
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /wallet/statement [get]
func (h *WalletHandler) ExportStatement(c *gin.Context) {
	businessID := c.GetString("business_id")

	url, err := h.walletUseCase.ExportStatement(businessID)
	if err != nil {
		h.rejectOrFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
