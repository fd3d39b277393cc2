package entity

import "time"

// AllocationPool is the per-business, per-period participation quota. The
// quota-provisioning service owns MonthlyLimit and OrganicUsage; the wallet
// service only raises PaidPurchased when a slot purchase commits.
type AllocationPool struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	Period        string    `json:"period"` // "2006-01"
	MonthlyLimit  int       `json:"monthly_limit"`
	OrganicUsage  int       `json:"organic_usage"`
	PaidPurchased int       `json:"paid_purchased"`
	PaidUsage     int       `json:"paid_usage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrganicLimit is the 60% tranche that must be consumed through unpaid usage.
func (p *AllocationPool) OrganicLimit() int {
	return p.MonthlyLimit * 6 / 10
}

// PaidLimit is the 40% tranche unlockable only by spending points.
func (p *AllocationPool) PaidLimit() int {
	return p.MonthlyLimit * 4 / 10
}

func (p *AllocationPool) OrganicRemaining() int {
	used := p.OrganicUsage
	if limit := p.OrganicLimit(); used > limit {
		used = limit
	}
	remaining := p.OrganicLimit() - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PaidUnlocked reports whether the organic tranche has been fully exhausted,
// the hard precondition for any slot purchase.
func (p *AllocationPool) PaidUnlocked() bool {
	return p.OrganicRemaining() == 0
}

func (p *AllocationPool) PaidRemaining() int {
	if !p.PaidUnlocked() {
		return 0
	}
	remaining := p.PaidLimit() - p.PaidUsage
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CurrentPeriod is the accounting period identifier for a point in time.
func CurrentPeriod(now time.Time) string {
	return now.UTC().Format("2006-01")
}
