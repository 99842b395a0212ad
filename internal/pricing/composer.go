// Package pricing derives the chargeable amount for a booking. The same
// composition is used for the submitted total and for per-option display
// prices so the two can never diverge.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oakwell/portal-api/internal/ehr"
)

// followUpCategory is the normalized form of every follow-up spelling
// ("Follow Up", "follow-up", "FollowUp").
const followUpCategory = "followup"

// ComputeTotal returns the total for a medical service given the selected
// primary service. The primary service's base price is additive only when it
// is the follow-up category. Unparsable prices count as zero.
func ComputeTotal(medical *ehr.MedicalService, primary *ehr.PrimaryService) float64 {
	var total float64
	if medical != nil {
		total = parsePrice(medical.BasePrice)
	}
	if primary != nil && IsFollowUp(primary.Name) {
		total += parsePrice(primary.BasePrice)
	}
	return total
}

// DisplayPrice is the per-option price shown in the medical-service picker:
// what the total would be if this service were chosen under the currently
// selected primary service.
func DisplayPrice(medical *ehr.MedicalService, primary *ehr.PrimaryService) string {
	return FormatAmount(ComputeTotal(medical, primary))
}

// FormatAmount renders an amount with two decimal places for submission.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// IsFollowUp reports whether a primary-service name normalizes to the
// follow-up category. Normalization trims, lowercases, and drops dashes
// and inner spaces.
func IsFollowUp(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, " ", "")
	return n == followUpCategory
}

func parsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
