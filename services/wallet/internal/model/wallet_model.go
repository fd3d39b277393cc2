package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletModel struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID  string    `gorm:"type:uuid;uniqueIndex;not null" json:"business_id"`
	Balance     int       `gorm:"default:0" json:"balance"`
	TotalEarned int       `gorm:"default:0" json:"total_earned"`
	TotalSpent  int       `gorm:"default:0" json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (WalletModel) TableName() string {
	return "wallets"
}

func (w *WalletModel) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

type LedgerEntryModel struct {
	ID            string    `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID    string    `gorm:"type:uuid;not null;index" json:"business_id"`
	Kind          string    `gorm:"type:varchar(32);not null" json:"kind"`
	Amount        int       `gorm:"not null" json:"amount"`
	BalanceBefore int       `json:"balance_before"`
	BalanceAfter  int       `json:"balance_after"`
	Description   string    `gorm:"type:text" json:"description"`
	Metadata      string    `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

func (e *LedgerEntryModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

type AllocationPoolModel struct {
	ID            string    `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_pool_business_period" json:"business_id"`
	Period        string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_pool_business_period" json:"period"`
	MonthlyLimit  int       `gorm:"not null" json:"monthly_limit"`
	OrganicUsage  int       `gorm:"default:0" json:"organic_usage"`
	PaidPurchased int       `gorm:"default:0" json:"paid_purchased"`
	PaidUsage     int       `gorm:"default:0" json:"paid_usage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (AllocationPoolModel) TableName() string {
	return "allocation_pools"
}

func (p *AllocationPoolModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
