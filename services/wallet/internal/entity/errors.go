package entity

import "errors"

// Business-rule errors. Handlers translate these into structured rejections;
// anything else crossing the usecase boundary is an infrastructure failure.
var (
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrAllocationPoolNotFound   = errors.New("allocation pool not provisioned for this period")
	ErrOrganicQuotaNotExhausted = errors.New("organic quota not exhausted")
	ErrPurchaseLimitExceeded    = errors.New("purchase limit exceeded")
	ErrUnknownSKU               = errors.New("unknown sku")
	ErrInvalidDuration          = errors.New("invalid boost duration")
	ErrEntryNotFound            = errors.New("ledger entry not found")
	ErrNotRefundable            = errors.New("entry is not refundable")
)
