package fact

// Derived measures guard every division: a zero denominator makes the measure
// undefined (null), never a crash and never an error.

// profitMarginPct derives profit / revenue * 100
func profitMarginPct(profit, revenue float64) *float64 {
	if revenue == 0 {
		return nil
	}
	v := profit / revenue * 100
	return &v
}

// discountPct derives discount / (unit price * quantity) * 100
func discountPct(discount, unitPrice float64, quantity int) *float64 {
	gross := unitPrice * float64(quantity)
	if gross == 0 {
		return nil
	}
	v := discount / gross * 100
	return &v
}

// severityTier buckets a continuous score into the configured ordered tiers.
// Tiers are evaluated highest-first with inclusive lower bounds, so a score
// sitting exactly on a threshold classifies into the higher tier. A missing
// score is UNKNOWN, which is distinct from the lowest scored tier.
func (b *Builder) severityTier(score *float64) string {
	if score == nil {
		return "UNKNOWN"
	}
	for _, tier := range b.tiers {
		if *score >= tier.MinScore {
			return tier.Name
		}
	}
	return "UNKNOWN"
}
