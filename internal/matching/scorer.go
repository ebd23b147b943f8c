package matching

import (
	"math"

	"finderguard/internal/models"
	"finderguard/internal/timeutil"
)

// Rubric weights.
const (
	CategoryPoints   = 30
	ColorPoints      = 20
	ColorTokenPoints = 10
	BrandPoints      = 20
	KeywordPoints    = 20
	RecencyPoints    = 10
	RecencyWindow    = 7.0 // days
	MaxScore         = 100
)

// Breakdown is the per-signal contribution to a confidence score.
type Breakdown struct {
	Category int
	Color    int
	Brand    int
	Keywords int
	Recency  int
}

// Total returns the capped sum of all signals.
func (b Breakdown) Total() int {
	return ClampConfidence(b.Category + b.Color + b.Brand + b.Keywords + b.Recency)
}

// Explain computes every signal of the rubric for a pair of feature sets.
// All signals are symmetric in a and b.
func Explain(a, b Features) Breakdown {
	var out Breakdown
	if a.Category != "" && a.Category == b.Category {
		out.Category = CategoryPoints
	}

	if common := intersectionSize(a.Colors, b.Colors); common > 0 {
		out.Color = min(ColorPoints, ColorTokenPoints*common)
	}

	if a.Brand != "" && b.Brand != "" && a.Brand == b.Brand {
		out.Brand = BrandPoints
	}

	common := intersectionSize(a.Keywords, b.Keywords)
	union := len(a.Keywords) + len(b.Keywords) - common
	if union < 1 {
		union = 1
	}
	out.Keywords = int(math.Round(KeywordPoints * float64(common) / float64(union)))

	if !a.CreatedAt.IsZero() && !b.CreatedAt.IsZero() {
		days := math.Min(timeutil.DaysBetween(a.CreatedAt, b.CreatedAt), RecencyWindow)
		out.Recency = int(math.Round(RecencyPoints * (1 - days/RecencyWindow)))
	}
	return out
}

// Score returns the rubric confidence for a pair of feature sets.
func Score(a, b Features) int {
	return Explain(a, b).Total()
}

// ScoreItems extracts features from both items and scores them.
func ScoreItems(a, b models.Item) int {
	return Score(Extract(a), Extract(b))
}

// ClampConfidence bounds a confidence to [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
