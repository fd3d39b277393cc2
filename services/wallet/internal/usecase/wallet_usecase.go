package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"points-wallet/pkg/logger"
	"points-wallet/pkg/queue"
	"points-wallet/pkg/s3"
	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

// WalletSummary is the console's at-a-glance view of a business wallet.
type WalletSummary struct {
	Balance          int  `json:"balance"`
	TotalEarned      int  `json:"total_earned"`
	TotalSpent       int  `json:"total_spent"`
	CanPurchaseSlots bool `json:"can_purchase_slots"`
	CanPurchaseBoost bool `json:"can_purchase_boost"`
}

type SlotPurchaseResult struct {
	SlotsPurchased int            `json:"slots_purchased"`
	PointsSpent    int            `json:"points_spent"`
	Balance        int            `json:"balance"`
	PaidRemaining  int            `json:"paid_remaining"`
	Wallet         *entity.Wallet `json:"-"`
}

type FeaturePurchaseResult struct {
	SKU         entity.SKU     `json:"sku"`
	PointsSpent int            `json:"points_spent"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Balance     int            `json:"balance"`
	Wallet      *entity.Wallet `json:"-"`
}

type WalletUseCase interface {
	GetWallet(businessID string) (*entity.Wallet, error)
	GetWalletSummary(businessID string) (*WalletSummary, error)
	OnCustomerRedemption(customerID, businessID string, points int, rewardTitle string) (bool, error)
	PurchaseParticipantSlots(businessID string, count int) (*SlotPurchaseResult, error)
	PurchaseVisibilityBoost(businessID, duration string) (*FeaturePurchaseResult, error)
	PurchaseFeature(businessID string, sku entity.SKU) (*FeaturePurchaseResult, error)
	RefundParticipantSlots(businessID, entryID, reason string) (*entity.Wallet, error)
	GetTransactions(businessID string, limit int) ([]*entity.LedgerEntry, error)
	ExportStatement(businessID string) (string, error)
}

type walletUseCase struct {
	walletRepo  persistent.WalletRepository
	poolRepo    persistent.AllocationRepository
	catalog     *entity.Catalog
	redisClient *redis.Client
	queueClient *queue.Client
	s3Client    *s3.Client
	logger      *logger.Logger
}

func NewWalletUseCase(
	walletRepo persistent.WalletRepository,
	poolRepo persistent.AllocationRepository,
	catalog *entity.Catalog,
	redisClient *redis.Client,
	queueClient *queue.Client,
	s3Client *s3.Client,
	logger *logger.Logger,
) WalletUseCase {
	return &walletUseCase{
		walletRepo:  walletRepo,
		poolRepo:    poolRepo,
		catalog:     catalog,
		redisClient: redisClient,
		queueClient: queueClient,
		s3Client:    s3Client,
		logger:      logger,
	}
}

func (uc *walletUseCase) GetWallet(businessID string) (*entity.Wallet, error) {
	wallet, err := uc.walletRepo.GetOrCreate(businessID)
	if err != nil {
		uc.logger.Error("Failed to get wallet: %v", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (uc *walletUseCase) GetWalletSummary(businessID string) (*WalletSummary, error) {
	wallet, err := uc.walletRepo.GetOrCreate(businessID)
	if err != nil {
		uc.logger.Error("Failed to get wallet: %v", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	slotPrice, err := uc.catalog.Cost(entity.SKUExtraParticipantSlot)
	if err != nil {
		return nil, err
	}
	boostPrice, err := uc.catalog.Cost(entity.SKUVisibilityBoost24H)
	if err != nil {
		return nil, err
	}

	summary := &WalletSummary{
		Balance:          wallet.Balance,
		TotalEarned:      wallet.TotalEarned,
		TotalSpent:       wallet.TotalSpent,
		CanPurchaseBoost: wallet.Balance >= boostPrice,
	}

	pool, err := uc.poolRepo.GetPool(businessID, entity.CurrentPeriod(time.Now()))
	if err == nil {
		summary.CanPurchaseSlots = pool.PaidUnlocked() &&
			pool.PaidRemaining() > 0 &&
			wallet.Balance >= slotPrice
	} else if !errors.Is(err, entity.ErrAllocationPoolNotFound) {
		return nil, fmt.Errorf("failed to get allocation pool: %w", err)
	}

	return summary, nil
}

// OnCustomerRedemption is the sole entry point by which the redemption flow
// feeds the ledger. The caller is responsible for not double-invoking it for
// the same redemption.
func (uc *walletUseCase) OnCustomerRedemption(customerID, businessID string, points int, rewardTitle string) (bool, error) {
	if points <= 0 {
		return false, entity.ErrInvalidAmount
	}

	meta := entity.EntryMetadata{Redemption: &entity.RedemptionMeta{
		CustomerID:  customerID,
		RewardTitle: rewardTitle,
	}}
	description := fmt.Sprintf("Points earned from customer redemption: %s", rewardTitle)

	wallet, entry, err := uc.walletRepo.Credit(businessID, points, entity.KindEarnedFromRedemption, description, meta)
	if err != nil {
		uc.logger.Error("Failed to credit wallet for redemption: %v", err)
		return false, fmt.Errorf("failed to credit wallet: %w", err)
	}

	uc.publishEvent(wallet, entry)
	return true, nil
}

func (uc *walletUseCase) PurchaseParticipantSlots(businessID string, count int) (*SlotPurchaseResult, error) {
	if count <= 0 {
		return nil, entity.ErrInvalidAmount
	}

	unitPrice, err := uc.catalog.Cost(entity.SKUExtraParticipantSlot)
	if err != nil {
		return nil, err
	}
	price := count * unitPrice

	meta := entity.EntryMetadata{Purchase: &entity.PurchaseMeta{
		SKU:   string(entity.SKUExtraParticipantSlot),
		Count: count,
	}}
	description := fmt.Sprintf("Purchased %d extra participant slot(s)", count)

	period := entity.CurrentPeriod(time.Now())
	wallet, entry, pool, err := uc.walletRepo.PurchaseSlots(businessID, period, count, price, description, meta)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(wallet, entry)

	return &SlotPurchaseResult{
		SlotsPurchased: count,
		PointsSpent:    price,
		Balance:        wallet.Balance,
		PaidRemaining:  pool.PaidRemaining(),
		Wallet:         wallet,
	}, nil
}

func (uc *walletUseCase) PurchaseVisibilityBoost(businessID, duration string) (*FeaturePurchaseResult, error) {
	var sku entity.SKU
	switch duration {
	case "24h":
		sku = entity.SKUVisibilityBoost24H
	case "7d":
		sku = entity.SKUVisibilityBoost7D
	default:
		return nil, entity.ErrInvalidDuration
	}
	return uc.purchaseTimedFeature(businessID, sku, entity.KindSpentOnVisibility)
}

// PurchaseFeature buys one of the timed premium SKUs. Visibility boosts go
// through PurchaseVisibilityBoost so they keep their own ledger kind.
func (uc *walletUseCase) PurchaseFeature(businessID string, sku entity.SKU) (*FeaturePurchaseResult, error) {
	switch sku {
	case entity.SKUPremiumAnalytics30D, entity.SKUFeaturedPlacement24H, entity.SKUPrioritySupport30D:
		return uc.purchaseTimedFeature(businessID, sku, entity.KindSpentOnPremium)
	default:
		return nil, entity.ErrUnknownSKU
	}
}

func (uc *walletUseCase) purchaseTimedFeature(businessID string, sku entity.SKU, kind entity.EntryKind) (*FeaturePurchaseResult, error) {
	price, err := uc.catalog.Cost(sku)
	if err != nil {
		return nil, err
	}
	featureTTL, err := entity.FeatureDuration(sku)
	if err != nil {
		return nil, err
	}

	meta := entity.EntryMetadata{Purchase: &entity.PurchaseMeta{
		SKU:      string(sku),
		Duration: featureTTL.String(),
	}}
	description := fmt.Sprintf("Purchased feature: %s", sku)

	wallet, entry, err := uc.walletRepo.Debit(businessID, price, kind, description, meta)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(featureTTL)
	uc.setFeatureFlag(businessID, sku, expiresAt, featureTTL)
	uc.publishEvent(wallet, entry)

	return &FeaturePurchaseResult{
		SKU:         sku,
		PointsSpent: price,
		ExpiresAt:   expiresAt,
		Balance:     wallet.Balance,
		Wallet:      wallet,
	}, nil
}

// setFeatureFlag records the feature expiry where the serving surfaces read
// it. The flag is a projection of the ledger, so a write failure is logged
// and never rolls back the committed debit.
func (uc *walletUseCase) setFeatureFlag(businessID string, sku entity.SKU, expiresAt time.Time, ttl time.Duration) {
	if uc.redisClient == nil {
		return
	}
	key := fmt.Sprintf("feature:%s:%s", sku, businessID)
	if err := uc.redisClient.Set(context.Background(), key, expiresAt.Format(time.RFC3339), ttl).Err(); err != nil {
		uc.logger.Error("Failed to set feature flag %s: %v", key, err)
	}
}

func (uc *walletUseCase) RefundParticipantSlots(businessID, entryID, reason string) (*entity.Wallet, error) {
	period := entity.CurrentPeriod(time.Now())
	wallet, entry, err := uc.walletRepo.RefundSlots(businessID, period, entryID, reason)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(wallet, entry)
	return wallet, nil
}

func (uc *walletUseCase) GetTransactions(businessID string, limit int) ([]*entity.LedgerEntry, error) {
	entries, err := uc.walletRepo.History(businessID, limit)
	if err != nil {
		uc.logger.Error("Failed to get transactions: %v", err)
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return entries, nil
}

// ExportStatement renders the full ledger history as CSV, stores it in S3
// and returns a presigned download URL.
func (uc *walletUseCase) ExportStatement(businessID string) (string, error) {
	if uc.s3Client == nil {
		return "", fmt.Errorf("statement export is not configured")
	}

	entries, err := uc.walletRepo.History(businessID, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load ledger history: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"timestamp", "kind", "amount", "balance_before", "balance_after", "description"}); err != nil {
		return "", err
	}
	for _, entry := range entries {
		record := []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			string(entry.Kind),
			strconv.Itoa(entry.Amount),
			strconv.Itoa(entry.BalanceBefore),
			strconv.Itoa(entry.BalanceAfter),
			entry.Description,
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("statements/%s/%s.csv", businessID, time.Now().UTC().Format("20060102T150405Z"))
	if err := uc.s3Client.Upload(key, buf.Bytes(), "text/csv"); err != nil {
		uc.logger.Error("Failed to upload statement: %v", err)
		return "", fmt.Errorf("failed to upload statement: %w", err)
	}

	url, err := uc.s3Client.PresignGet(key, 15*time.Minute)
	if err != nil {
		return "", fmt.Errorf("failed to presign statement: %w", err)
	}
	return url, nil
}

func (uc *walletUseCase) publishEvent(wallet *entity.Wallet, entry *entity.LedgerEntry) {
	if uc.queueClient == nil || wallet == nil || entry == nil {
		return
	}
	event := queue.WalletEvent{
		BusinessID:   wallet.BusinessID,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		OccurredAt:   entry.CreatedAt,
	}
	if err := uc.queueClient.PublishWalletEvent(event); err != nil {
		uc.logger.Error("Failed to publish wallet event: %v", err)
	}
}
