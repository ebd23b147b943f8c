// Package trust computes reputation changes caused by exchange outcomes.
// Trust scores are only ever changed through ApplySuccess and ApplyFailure.
package trust

import "finderguard/internal/models"

const (
	// SuccessDelta is awarded to the founder when an exchange completes.
	SuccessDelta = 5
	// FailureDelta is deducted from the founder when an exchange expires.
	FailureDelta = 10
)

// ApplySuccess returns the profile after a completed exchange.
func ApplySuccess(p models.Profile) models.Profile {
	p.TrustScore = clamp(p.TrustScore + SuccessDelta)
	p.ReportsCount++
	return p
}

// ApplyFailure returns the profile after an expired exchange.
func ApplyFailure(p models.Profile) models.Profile {
	p.TrustScore = clamp(p.TrustScore - FailureDelta)
	p.FailedExchanges++
	return p
}

func clamp(score int) int {
	if score > models.MaxTrustScore {
		return models.MaxTrustScore
	}
	if score < models.MinTrustScore {
		return models.MinTrustScore
	}
	return score
}
