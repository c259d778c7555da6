package auth

// Tier is an entitlement level controlling capabilities and monthly quota.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// TierInfo carries the commercial attributes of a tier.
type TierInfo struct {
	RequestsPerMonth int64
	PriceUSD         int
}

// tierTable is total over the tier enumeration: every tier, including free,
// has a defined quota and price.
var tierTable = map[Tier]TierInfo{
	TierFree:     {RequestsPerMonth: 25, PriceUSD: 0},
	TierPro:      {RequestsPerMonth: 500, PriceUSD: 29},
	TierBusiness: {RequestsPerMonth: 5000, PriceUSD: 99},
}

// tierCapabilities is likewise total: the capability set of each tier is
// defined explicitly, free included.
var tierCapabilities = map[Tier]map[string]bool{
	TierFree: {
		"keyword_research": true,
		"analyze_serp":     true,
		"check_backlinks":  true,
		"optimize_content": true,
	},
	TierPro: {
		"keyword_research": true,
		"analyze_serp":     true,
		"check_backlinks":  true,
		"optimize_content": true,
		"site_audit":       true,
		"content_brief":    true,
	},
	TierBusiness: {
		"keyword_research": true,
		"analyze_serp":     true,
		"check_backlinks":  true,
		"optimize_content": true,
		"site_audit":       true,
		"content_brief":    true,
	},
}

// Tiers lists the tier enumeration in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierPro, TierBusiness}
}

// ParseTier maps a stored tier string to the enumeration, defaulting unknown
// values to free.
func ParseTier(value string) Tier {
	switch Tier(value) {
	case TierPro:
		return TierPro
	case TierBusiness:
		return TierBusiness
	default:
		return TierFree
	}
}

// Info returns the commercial attributes of t.
func (t Tier) Info() TierInfo {
	return tierTable[t]
}

// CapabilityAllowed reports whether tier may invoke the named capability.
// A declined capability is not an error condition: callers turn it into an
// upgrade message, never an authentication failure.
func CapabilityAllowed(tier Tier, capability string) bool {
	return tierCapabilities[ParseTier(string(tier))][capability]
}
