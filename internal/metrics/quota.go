package metrics

// QuotaChecked records the outcome of a single quota check
func QuotaChecked(resource, plan string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	QuotaChecksTotal.WithLabelValues(resource, plan, result).Inc()
}
