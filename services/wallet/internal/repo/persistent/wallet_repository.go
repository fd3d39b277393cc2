package persistent

import (
	"errors"
	"time"

	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes retried internally: serialization_failure,
// deadlock_detected and unique_violation. Callers never see these as
// distinct failures. unique_violation is transient here because the only
// unique constraints these transactions touch are the wallets business_id
// index and the pool business/period index: losing a first-insert race
// means the row now exists, so the rerun locks it instead.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"

	conflictRetries = 3
)

type WalletRepository interface {
	GetOrCreate(businessID string) (*entity.Wallet, error)
	Credit(businessID string, amount int, kind entity.EntryKind, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, error)
	Debit(businessID string, amount int, kind entity.EntryKind, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, error)
	PurchaseSlots(businessID, period string, count, price int, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, *entity.AllocationPool, error)
	RefundSlots(businessID, period, entryID, reason string) (*entity.Wallet, *entity.LedgerEntry, error)
	GetEntry(businessID, entryID string) (*entity.LedgerEntry, error)
	History(businessID string, limit int) ([]*entity.LedgerEntry, error)
}

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure ||
			pgErr.Code == pgDeadlockDetected ||
			pgErr.Code == pgUniqueViolation
	}
	return false
}

// withConflictRetry reruns fn on transient write conflicts so concurrent
// mutations against the same wallet never surface as caller-visible errors.
func withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if err == nil || !isRetryableConflict(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func (r *walletRepository) GetOrCreate(businessID string) (*entity.Wallet, error) {
	var walletModel model.WalletModel
	if err := r.db.Where("business_id = ?", businessID).First(&walletModel).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		walletModel = model.WalletModel{BusinessID: businessID}
		if createErr := r.db.Create(&walletModel).Error; createErr != nil {
			// A concurrent caller may have created the row first.
			var pgErr *pgconn.PgError
			if errors.As(createErr, &pgErr) && pgErr.Code == pgUniqueViolation {
				if err := r.db.Where("business_id = ?", businessID).First(&walletModel).Error; err != nil {
					return nil, err
				}
			} else {
				return nil, createErr
			}
		}
	}
	return ToWalletEntity(&walletModel), nil
}

// lockWallet loads the wallet row under FOR UPDATE, creating it lazily.
// Mutations against the same business serialize on this lock; different
// businesses never contend. A lost first-insert race aborts the transaction
// with a unique violation, which withConflictRetry reruns; the rerun then
// locks the row the winner created.
func lockWallet(tx *gorm.DB, businessID string) (*model.WalletModel, error) {
	var walletModel model.WalletModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessID).
		First(&walletModel).Error
	if err == nil {
		return &walletModel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	walletModel = model.WalletModel{BusinessID: businessID}
	if err := tx.Create(&walletModel).Error; err != nil {
		return nil, err
	}
	return &walletModel, nil
}

func appendEntry(tx *gorm.DB, walletModel *model.WalletModel, amount int, kind entity.EntryKind, description string, meta entity.EntryMetadata, balanceBefore int) (*model.LedgerEntryModel, error) {
	entry := &entity.LedgerEntry{
		BusinessID:    walletModel.BusinessID,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  walletModel.Balance,
		Description:   description,
		Metadata:      meta,
		CreatedAt:     time.Now().UTC(),
	}
	entryModel, err := ToLedgerEntryModel(entry)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(entryModel).Error; err != nil {
		return nil, err
	}
	return entryModel, nil
}

func (r *walletRepository) Credit(businessID string, amount int, kind entity.EntryKind, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, error) {
	if amount <= 0 {
		return nil, nil, entity.ErrInvalidAmount
	}
	if err := meta.Validate(kind); err != nil {
		return nil, nil, err
	}

	var walletModel *model.WalletModel
	var entryModel *model.LedgerEntryModel

	err := withConflictRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			w, err := lockWallet(tx, businessID)
			if err != nil {
				return err
			}

			balanceBefore := w.Balance
			w.Balance += amount
			w.TotalEarned += amount
			if err := tx.Save(w).Error; err != nil {
				return err
			}

			e, err := appendEntry(tx, w, amount, kind, description, meta, balanceBefore)
			if err != nil {
				return err
			}

			walletModel = w
			entryModel = e
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return ToWalletEntity(walletModel), ToLedgerEntryEntity(entryModel), nil
}

func (r *walletRepository) Debit(businessID string, amount int, kind entity.EntryKind, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, error) {
	if amount <= 0 {
		return nil, nil, entity.ErrInvalidAmount
	}
	if err := meta.Validate(kind); err != nil {
		return nil, nil, err
	}

	var walletModel *model.WalletModel
	var entryModel *model.LedgerEntryModel

	err := withConflictRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			w, err := lockWallet(tx, businessID)
			if err != nil {
				return err
			}

			if w.Balance < amount {
				return entity.ErrInsufficientBalance
			}

			balanceBefore := w.Balance
			w.Balance -= amount
			w.TotalSpent += amount
			if err := tx.Save(w).Error; err != nil {
				return err
			}

			e, err := appendEntry(tx, w, -amount, kind, description, meta, balanceBefore)
			if err != nil {
				return err
			}

			walletModel = w
			entryModel = e
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return ToWalletEntity(walletModel), ToLedgerEntryEntity(entryModel), nil
}

// PurchaseSlots debits the wallet and raises paid_purchased in one
// transaction. Pool preconditions are rechecked under the row lock so a
// rejected purchase leaves both records untouched and a concurrent usage
// update cannot slip between validation and commit.
func (r *walletRepository) PurchaseSlots(businessID, period string, count, price int, description string, meta entity.EntryMetadata) (*entity.Wallet, *entity.LedgerEntry, *entity.AllocationPool, error) {
	if count <= 0 || price <= 0 {
		return nil, nil, nil, entity.ErrInvalidAmount
	}
	if err := meta.Validate(entity.KindSpentOnParticipants); err != nil {
		return nil, nil, nil, err
	}

	var walletModel *model.WalletModel
	var entryModel *model.LedgerEntryModel
	var poolModel *model.AllocationPoolModel

	err := withConflictRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var pm model.AllocationPoolModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("business_id = ? AND period = ?", businessID, period).
				First(&pm).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return entity.ErrAllocationPoolNotFound
				}
				return err
			}

			pool := ToAllocationPoolEntity(&pm)
			if !pool.PaidUnlocked() {
				return entity.ErrOrganicQuotaNotExhausted
			}
			if count > pool.PaidRemaining() {
				return entity.ErrPurchaseLimitExceeded
			}

			w, err := lockWallet(tx, businessID)
			if err != nil {
				return err
			}
			if w.Balance < price {
				return entity.ErrInsufficientBalance
			}

			balanceBefore := w.Balance
			w.Balance -= price
			w.TotalSpent += price
			if err := tx.Save(w).Error; err != nil {
				return err
			}

			e, err := appendEntry(tx, w, -price, entity.KindSpentOnParticipants, description, meta, balanceBefore)
			if err != nil {
				return err
			}

			pm.PaidPurchased += count
			if err := tx.Save(&pm).Error; err != nil {
				return err
			}

			walletModel = w
			entryModel = e
			poolModel = &pm
			return nil
		})
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return ToWalletEntity(walletModel), ToLedgerEntryEntity(entryModel), ToAllocationPoolEntity(poolModel), nil
}

// RefundSlots compensates a slot purchase: credits the points back and
// returns the slots to the pool. Only unused purchased capacity can be
// returned, and an entry can be refunded at most once.
func (r *walletRepository) RefundSlots(businessID, period, entryID, reason string) (*entity.Wallet, *entity.LedgerEntry, error) {
	var walletModel *model.WalletModel
	var entryModel *model.LedgerEntryModel

	err := withConflictRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var original model.LedgerEntryModel
			err := tx.Where("id = ? AND business_id = ?", entryID, businessID).
				First(&original).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return entity.ErrEntryNotFound
				}
				return err
			}
			if original.Kind != string(entity.KindSpentOnParticipants) {
				return entity.ErrNotRefundable
			}

			var refunded int64
			err = tx.Model(&model.LedgerEntryModel{}).
				Where("business_id = ? AND kind = ? AND metadata->'refund'->>'refunded_entry_id' = ?",
					businessID, string(entity.KindRefund), entryID).
				Count(&refunded).Error
			if err != nil {
				return err
			}
			if refunded > 0 {
				return entity.ErrNotRefundable
			}

			originalEntry := ToLedgerEntryEntity(&original)
			count := 0
			if originalEntry.Metadata.Purchase != nil {
				count = originalEntry.Metadata.Purchase.Count
			}
			if count <= 0 {
				return entity.ErrNotRefundable
			}

			var pm model.AllocationPoolModel
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("business_id = ? AND period = ?", businessID, period).
				First(&pm).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return entity.ErrAllocationPoolNotFound
				}
				return err
			}
			// Slots already consumed by participants cannot be returned.
			if pm.PaidPurchased-count < pm.PaidUsage {
				return entity.ErrNotRefundable
			}

			w, err := lockWallet(tx, businessID)
			if err != nil {
				return err
			}

			amount := -original.Amount // original is a debit, so this is positive
			balanceBefore := w.Balance
			w.Balance += amount
			w.TotalEarned += amount
			if err := tx.Save(w).Error; err != nil {
				return err
			}

			meta := entity.EntryMetadata{Refund: &entity.RefundMeta{
				RefundedEntryID: entryID,
				Reason:          reason,
			}}
			e, err := appendEntry(tx, w, amount, entity.KindRefund, "refund: "+original.Description, meta, balanceBefore)
			if err != nil {
				return err
			}

			pm.PaidPurchased -= count
			if err := tx.Save(&pm).Error; err != nil {
				return err
			}

			walletModel = w
			entryModel = e
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return ToWalletEntity(walletModel), ToLedgerEntryEntity(entryModel), nil
}

func (r *walletRepository) GetEntry(businessID, entryID string) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	err := r.db.Where("id = ? AND business_id = ?", entryID, businessID).
		First(&entryModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrEntryNotFound
		}
		return nil, err
	}
	return ToLedgerEntryEntity(&entryModel), nil
}

func (r *walletRepository) History(businessID string, limit int) ([]*entity.LedgerEntry, error) {
	var entryModels []model.LedgerEntryModel
	query := r.db.Where("business_id = ?", businessID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*entity.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = ToLedgerEntryEntity(&entryModels[i])
	}
	return entries, nil
}
