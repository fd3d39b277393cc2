package persistent

import (
	"encoding/json"

	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/model"
)

func ToWalletEntity(m *model.WalletModel) *entity.Wallet {
	if m == nil {
		return nil
	}

	return &entity.Wallet{
		ID:          m.ID,
		BusinessID:  m.BusinessID,
		Balance:     m.Balance,
		TotalEarned: m.TotalEarned,
		TotalSpent:  m.TotalSpent,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ToLedgerEntryEntity(m *model.LedgerEntryModel) *entity.LedgerEntry {
	if m == nil {
		return nil
	}

	var metadata entity.EntryMetadata
	if m.Metadata != "" {
		// Rows are written through the validated path; a decode failure
		// here means the column was tampered with, so surface empty
		// metadata rather than dropping the entry.
		_ = json.Unmarshal([]byte(m.Metadata), &metadata)
	}

	return &entity.LedgerEntry{
		ID:            m.ID,
		BusinessID:    m.BusinessID,
		Kind:          entity.EntryKind(m.Kind),
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Description:   m.Description,
		Metadata:      metadata,
		CreatedAt:     m.CreatedAt,
	}
}

func ToLedgerEntryModel(e *entity.LedgerEntry) (*model.LedgerEntryModel, error) {
	if e == nil {
		return nil, nil
	}

	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, err
	}

	return &model.LedgerEntryModel{
		ID:            e.ID,
		BusinessID:    e.BusinessID,
		Kind:          string(e.Kind),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Description:   e.Description,
		Metadata:      string(metadata),
		CreatedAt:     e.CreatedAt,
	}, nil
}

func ToAllocationPoolEntity(m *model.AllocationPoolModel) *entity.AllocationPool {
	if m == nil {
		return nil
	}

	return &entity.AllocationPool{
		ID:            m.ID,
		BusinessID:    m.BusinessID,
		Period:        m.Period,
		MonthlyLimit:  m.MonthlyLimit,
		OrganicUsage:  m.OrganicUsage,
		PaidPurchased: m.PaidPurchased,
		PaidUsage:     m.PaidUsage,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
