package entity

import (
	"fmt"
	"time"
)

type EntryKind string

const (
	KindEarnedFromRedemption EntryKind = "earned_from_redemption"
	KindSpentOnParticipants  EntryKind = "spent_on_participants"
	KindSpentOnVisibility    EntryKind = "spent_on_visibility"
	KindSpentOnPremium       EntryKind = "spent_on_premium"
	KindRefund               EntryKind = "refund"
)

// Wallet holds one balance record per business. Balance always equals
// TotalEarned - TotalSpent and never goes negative; both totals only grow.
type Wallet struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	Balance     int       `json:"balance"`
	TotalEarned int       `json:"total_earned"`
	TotalSpent  int       `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LedgerEntry is one immutable record of a balance change. Amount is signed:
// positive for credits, negative for debits. Corrections are issued as new
// refund entries, never edits.
type LedgerEntry struct {
	ID            string        `json:"id"`
	BusinessID    string        `json:"business_id"`
	Kind          EntryKind     `json:"kind"`
	Amount        int           `json:"amount"`
	BalanceBefore int           `json:"balance_before"`
	BalanceAfter  int           `json:"balance_after"`
	Description   string        `json:"description"`
	Metadata      EntryMetadata `json:"metadata"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RedemptionMeta records which customer redemption produced a credit.
type RedemptionMeta struct {
	CustomerID  string `json:"customer_id"`
	RewardTitle string `json:"reward_title"`
}

// PurchaseMeta records what a debit bought. Count is set for slot purchases,
// Duration for timed features.
type PurchaseMeta struct {
	SKU      string `json:"sku"`
	Count    int    `json:"count,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// RefundMeta links a refund back to the entry it compensates.
type RefundMeta struct {
	RefundedEntryID string `json:"refunded_entry_id"`
	Reason          string `json:"reason"`
}

// EntryMetadata is a closed tagged variant: exactly the field matching the
// entry kind is set.
type EntryMetadata struct {
	Redemption *RedemptionMeta `json:"redemption,omitempty"`
	Purchase   *PurchaseMeta   `json:"purchase,omitempty"`
	Refund     *RefundMeta     `json:"refund,omitempty"`
}

// Validate checks that the metadata shape matches the entry kind.
func (m EntryMetadata) Validate(kind EntryKind) error {
	switch kind {
	case KindEarnedFromRedemption:
		if m.Redemption == nil || m.Purchase != nil || m.Refund != nil {
			return fmt.Errorf("entry kind %s requires redemption metadata only", kind)
		}
		if m.Redemption.CustomerID == "" {
			return fmt.Errorf("redemption metadata requires a customer id")
		}
	case KindSpentOnParticipants, KindSpentOnVisibility, KindSpentOnPremium:
		if m.Purchase == nil || m.Redemption != nil || m.Refund != nil {
			return fmt.Errorf("entry kind %s requires purchase metadata only", kind)
		}
		if m.Purchase.SKU == "" {
			return fmt.Errorf("purchase metadata requires a sku")
		}
	case KindRefund:
		if m.Refund == nil || m.Redemption != nil || m.Purchase != nil {
			return fmt.Errorf("entry kind %s requires refund metadata only", kind)
		}
		if m.Refund.RefundedEntryID == "" {
			return fmt.Errorf("refund metadata requires the refunded entry id")
		}
	default:
		return fmt.Errorf("unknown entry kind %q", kind)
	}
	return nil
}
