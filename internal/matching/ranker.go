package matching

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"finderguard/internal/models"
)

const (
	defaultThreshold       = 50
	defaultSemanticTimeout = 10 * time.Second
	defaultMaxDeviation    = 40
)

// Logger is a minimal logger interface required by the ranker.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config holds the ranking settings.
type Config struct {
	// Threshold is the confidence a candidate must exceed to become a match.
	Threshold int
	// SearchRadiusKm limits candidates by distance when ShowGlobal is false.
	// Zero disables the radius filter.
	SearchRadiusKm float64
	// ShowGlobal disables the radius filter.
	ShowGlobal bool
	// SemanticTimeout bounds a single semantic matcher call.
	SemanticTimeout time.Duration
	// MaxSemanticDeviation is the largest accepted gap between a semantic
	// score and the rubric score for the same pair.
	MaxSemanticDeviation int
}

// ItemSource lists open items of a kind, optionally restricted to a category.
type ItemSource interface {
	ListOpenByKindAndCategory(ctx context.Context, kind, category string) ([]models.Item, error)
}

// Ranker finds and orders match candidates for a newly posted item.
type Ranker struct {
	items    ItemSource
	semantic SemanticMatcher
	logger   Logger
	cfg      Config
}

// NewRanker creates a ranker. semantic may be nil.
func NewRanker(items ItemSource, semantic SemanticMatcher, logger Logger, cfg Config) *Ranker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = defaultSemanticTimeout
	}
	if cfg.MaxSemanticDeviation <= 0 {
		cfg.MaxSemanticDeviation = defaultMaxDeviation
	}
	return &Ranker{items: items, semantic: semantic, logger: logger, cfg: cfg}
}

type scored struct {
	item       models.Item
	confidence int
	reason     string
	source     string
}

// Rank returns pending matches for subject, ordered by confidence. It never
// fails: store or matcher errors are logged and degrade to fewer results.
func (r *Ranker) Rank(ctx context.Context, subject models.Item) []models.Match {
	if !models.ValidKind(subject.Kind) {
		return []models.Match{}
	}
	candidates, err := r.candidates(ctx, subject)
	if err != nil {
		r.logger.Errorf("ranker: list candidates for item %s failed: %v", subject.ID, err)
		return []models.Match{}
	}
	if len(candidates) == 0 {
		return []models.Match{}
	}

	results := r.score(ctx, subject, candidates)

	kept := results[:0]
	for _, s := range results {
		if s.confidence > r.cfg.Threshold {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].confidence != kept[j].confidence {
			return kept[i].confidence > kept[j].confidence
		}
		if !kept[i].item.CreatedAt.Equal(kept[j].item.CreatedAt) {
			return kept[i].item.CreatedAt.After(kept[j].item.CreatedAt)
		}
		return kept[i].item.ID < kept[j].item.ID
	})

	matches := make([]models.Match, 0, len(kept))
	for _, s := range kept {
		matches = append(matches, newMatch(subject, s))
	}
	return matches
}

func (r *Ranker) candidates(ctx context.Context, subject models.Item) ([]models.Item, error) {
	kind := models.OppositeKind(subject.Kind)
	pool, err := r.items.ListOpenByKindAndCategory(ctx, kind, subject.Category)
	if err != nil {
		return nil, err
	}
	pool = r.filter(subject, pool, true)
	if len(pool) > 0 {
		return pool, nil
	}
	pool, err = r.items.ListOpenByKindAndCategory(ctx, kind, "")
	if err != nil {
		return nil, err
	}
	return r.filter(subject, pool, false), nil
}

func (r *Ranker) filter(subject models.Item, pool []models.Item, sameCategory bool) []models.Item {
	out := make([]models.Item, 0, len(pool))
	for _, c := range pool {
		if c.Kind != models.OppositeKind(subject.Kind) || c.Status != models.ItemStatusOpen || c.ID == subject.ID {
			continue
		}
		if sameCategory && !strings.EqualFold(strings.TrimSpace(c.Category), strings.TrimSpace(subject.Category)) {
			continue
		}
		if !r.withinRadius(subject, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Ranker) withinRadius(subject, candidate models.Item) bool {
	if r.cfg.ShowGlobal || r.cfg.SearchRadiusKm <= 0 {
		return true
	}
	if subject.Location == nil || candidate.Location == nil {
		return true
	}
	return subject.Location.DistanceTo(*candidate.Location) <= r.cfg.SearchRadiusKm*1000
}

func (r *Ranker) score(ctx context.Context, subject models.Item, candidates []models.Item) []scored {
	subjectFeatures := Extract(subject)
	out := make([]scored, len(candidates))
	for i, c := range candidates {
		out[i] = scored{
			item:       c,
			confidence: Score(subjectFeatures, Extract(c)),
			source:     models.MatchSourceRubric,
		}
	}
	if r.semantic == nil {
		return out
	}

	result := r.callSemantic(ctx, subject, candidates)
	if !result.OK {
		r.logger.Errorf("ranker: semantic matcher unavailable for item %s, using rubric: %s", subject.ID, result.Reason)
		return out
	}
	if result.Reason != "" {
		r.logger.Infof("ranker: semantic matcher for item %s: %s", subject.ID, result.Reason)
	}
	for i := range out {
		baseline := out[i].confidence
		semantic, ok := result.Matches[out[i].item.ID]
		aiScore := 0
		if ok {
			aiScore = int(math.Round(semantic.Confidence))
		}
		if abs(aiScore-baseline) > r.cfg.MaxSemanticDeviation {
			continue
		}
		out[i].confidence = ClampConfidence(aiScore)
		out[i].reason = semantic.Reason
		out[i].source = models.MatchSourceSemantic
	}
	return out
}

func (r *Ranker) callSemantic(ctx context.Context, subject models.Item, candidates []models.Item) SemanticResult {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SemanticTimeout)
	defer cancel()

	public := make([]models.Item, len(candidates))
	for i, c := range candidates {
		p := c.Public()
		p.Image = ""
		public[i] = p
	}

	type response struct {
		scores []SemanticScore
		err    error
	}
	done := make(chan response, 1)
	go func() {
		scores, err := r.semantic.Rank(ctx, subject.Public(), public)
		done <- response{scores: scores, err: err}
	}()

	select {
	case <-ctx.Done():
		return SemanticResult{Reason: "semantic matcher: " + ctx.Err().Error()}
	case resp := <-done:
		return ValidateSemantic(resp.scores, resp.err, candidates)
	}
}

func newMatch(subject models.Item, s scored) models.Match {
	m := models.Match{
		Confidence:          s.confidence,
		Reason:              s.reason,
		Source:              s.source,
		Status:              models.MatchStatusPending,
		ExchangeStatus:      models.ExchangeStatusNone,
		ExchangeConfirmedBy: []string{},
	}
	lost, found := subject, s.item
	if subject.Kind == models.KindFound {
		lost, found = s.item, subject
	}
	m.LostItemID, m.LostUserID = lost.ID, lost.OwnerID
	m.FoundItemID, m.FoundUserID = found.ID, found.OwnerID
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
