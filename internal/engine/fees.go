package engine

const (
	// platformFeeRateBps is the platform commission charged to free-tier
	// stores, in basis points of the order total
	platformFeeRateBps = 100

	// feeTaxRateBps is the consumption tax applied to the processor fee,
	// carried informationally in the entry note
	feeTaxRateBps = 500
)

// mulBps multiplies an amount by a basis-point rate, rounding half away from
// zero. Works for negative amounts.
func mulBps(amount, bps int64) int64 {
	product := amount * bps
	if product >= 0 {
		return (product + 5000) / 10000
	}
	return (product - 5000) / 10000
}

// ceilDiv divides a by b rounding up. Both arguments must be positive.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// abs returns the magnitude of a signed amount
func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
