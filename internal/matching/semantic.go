package matching

import (
	"context"
	"fmt"
	"math"

	"finderguard/internal/models"
)

// SemanticMatcher is an optional external ranker, typically backed by a
// generative model. Its scores are advisory.
type SemanticMatcher interface {
	Rank(ctx context.Context, subject models.Item, candidates []models.Item) ([]SemanticScore, error)
}

// SemanticScore is one raw entry returned by a SemanticMatcher.
type SemanticScore struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// SemanticResult is the validated outcome of a semantic ranking call.
// When OK is false, Reason explains why the deterministic rubric must be used.
type SemanticResult struct {
	OK      bool
	Matches map[string]SemanticScore
	Reason  string
}

// ValidateSemantic turns a raw matcher response into a SemanticResult.
// Entries naming unknown or duplicate candidates and non-finite confidences
// are dropped; confidences are clamped to [0,100].
func ValidateSemantic(raw []SemanticScore, callErr error, candidates []models.Item) SemanticResult {
	if callErr != nil {
		return SemanticResult{Reason: callErr.Error()}
	}
	if raw == nil {
		return SemanticResult{Reason: "semantic matcher returned no result"}
	}
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.ID] = struct{}{}
	}
	out := SemanticResult{OK: true, Matches: make(map[string]SemanticScore, len(raw))}
	dropped := 0
	for _, s := range raw {
		if _, ok := known[s.ID]; !ok {
			dropped++
			continue
		}
		if _, dup := out.Matches[s.ID]; dup {
			dropped++
			continue
		}
		if math.IsNaN(s.Confidence) || math.IsInf(s.Confidence, 0) {
			dropped++
			continue
		}
		s.Confidence = math.Max(0, math.Min(MaxScore, s.Confidence))
		out.Matches[s.ID] = s
	}
	if len(raw) > 0 && len(out.Matches) == 0 {
		return SemanticResult{Reason: fmt.Sprintf("semantic matcher returned %d unusable entries", dropped)}
	}
	if dropped > 0 {
		out.Reason = fmt.Sprintf("dropped %d malformed entries", dropped)
	}
	return out
}
