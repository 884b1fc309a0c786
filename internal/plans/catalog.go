/**
 * @description
 * This package holds the static plan catalog: the mapping from a Razorpay
 * plan code (carried in the payment notes) to the quota delta it purchases.
 * Adding a plan is a data change here, not a logic change anywhere else.
 */
package plans

import "github.com/deepak6600/ai-billing-server/internal/domain"

// Plan codes sold at checkout.
const (
	PlanBasic     = "basic_499"
	PlanPremium   = "premium_999"
	PlanUnlimited = "unlimited_2499"
)

// Catalog is an immutable lookup table from plan code to resource delta.
type Catalog struct {
	entries map[string]domain.ResourceDelta
}

// Default returns the catalog of plans currently on sale.
func Default() *Catalog {
	return &Catalog{
		entries: map[string]domain.ResourceDelta{
			PlanBasic:     {Image: 50, Video: 20, Audio: 20},
			PlanPremium:   {Image: 500, Video: 100, Audio: 100},
			PlanUnlimited: {Image: 999999, Video: 999999, Audio: 999999},
		},
	}
}

// Lookup returns the delta for a known plan code and a zero delta for an
// unknown or missing one. An unrecognized plan accrues nothing rather than
// failing the whole request.
func (c *Catalog) Lookup(code string) domain.ResourceDelta {
	return c.entries[code]
}

// Known reports whether code is a plan this catalog sells.
func (c *Catalog) Known(code string) bool {
	_, ok := c.entries[code]
	return ok
}
