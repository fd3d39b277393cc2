package entity

import "time"

type SKU string

const (
	SKUExtraParticipantSlot SKU = "extra_participant_slot"
	SKUVisibilityBoost24H   SKU = "visibility_boost_24h"
	SKUVisibilityBoost7D    SKU = "visibility_boost_7d"
	SKUPremiumAnalytics30D  SKU = "premium_analytics_30d"
	SKUFeaturedPlacement24H SKU = "featured_placement_24h"
	SKUPrioritySupport30D   SKU = "priority_support_30d"
)

// Catalog is the immutable SKU -> point cost table, fixed at startup.
// Pricing changes are a deployment-time configuration change.
type Catalog struct {
	prices map[SKU]int
}

func NewCatalog(prices map[SKU]int) *Catalog {
	copied := make(map[SKU]int, len(prices))
	for sku, cost := range prices {
		copied[sku] = cost
	}
	return &Catalog{prices: copied}
}

func (c *Catalog) Cost(sku SKU) (int, error) {
	cost, ok := c.prices[sku]
	if !ok {
		return 0, ErrUnknownSKU
	}
	return cost, nil
}

// FeatureDuration returns how long a timed feature stays active once bought.
// The participant-slot SKU has no duration; it changes pool capacity instead.
func FeatureDuration(sku SKU) (time.Duration, error) {
	switch sku {
	case SKUVisibilityBoost24H, SKUFeaturedPlacement24H:
		return 24 * time.Hour, nil
	case SKUVisibilityBoost7D:
		return 7 * 24 * time.Hour, nil
	case SKUPremiumAnalytics30D, SKUPrioritySupport30D:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, ErrUnknownSKU
	}
}
