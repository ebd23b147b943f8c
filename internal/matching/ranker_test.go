package matching

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"finderguard/internal/models"
)

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

type stubItems struct {
	items []models.Item
	err   error
	calls []string
}

func (s *stubItems) ListOpenByKindAndCategory(ctx context.Context, kind, category string) ([]models.Item, error) {
	s.calls = append(s.calls, kind+"/"+category)
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Item
	for _, it := range s.items {
		if it.Kind != kind || it.Status != models.ItemStatusOpen {
			continue
		}
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type stubSemantic struct {
	scores   []SemanticScore
	err      error
	delay    time.Duration
	subject  models.Item
	received []models.Item
}

func (s *stubSemantic) Rank(ctx context.Context, subject models.Item, candidates []models.Item) ([]SemanticScore, error) {
	s.subject = subject
	s.received = candidates
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.scores, s.err
}

func foundPhone() models.Item {
	return models.Item{
		ID:          "found-1",
		OwnerID:     "finder",
		Kind:        models.KindFound,
		Category:    "Electronics",
		Description: "Blue iPhone with cracked screen found near station",
		Image:       "data:image/jpeg;base64,AAAA",
		Status:      models.ItemStatusOpen,
		CreatedAt:   day0,
	}
}

func lostPool() []models.Item {
	return []models.Item{
		{
			ID: "lost-strong", OwnerID: "alice", Kind: models.KindLost, Category: "Electronics",
			Description: "Blue iPhone with cracked screen protector", Status: models.ItemStatusOpen,
			CreatedAt:      day0.Add(-2 * time.Hour),
			PrivateDetails: &models.PrivateDetails{SerialNumber: "F2LXK"},
			Image:          "data:image/jpeg;base64,BBBB",
		},
		{
			ID: "lost-weak", OwnerID: "bob", Kind: models.KindLost, Category: "Electronics",
			Description: "Grey Dell laptop bag", Status: models.ItemStatusOpen, CreatedAt: day0,
		},
		{
			ID: "lost-closed", OwnerID: "carol", Kind: models.KindLost, Category: "Electronics",
			Description: "Blue iPhone with cracked screen", Status: models.ItemStatusCompleted, CreatedAt: day0,
		},
		{
			ID: "found-other", OwnerID: "dave", Kind: models.KindFound, Category: "Electronics",
			Description: "Blue iPhone with cracked screen", Status: models.ItemStatusOpen, CreatedAt: day0,
		},
	}
}

func matchIDs(matches []models.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.LostItemID
	}
	return ids
}

func TestRankKeepsOnlyConfidentOppositeKindMatches(t *testing.T) {
	items := &stubItems{items: lostPool()}
	r := NewRanker(items, nil, testLogger{}, Config{ShowGlobal: true})

	matches := r.Rank(context.Background(), foundPhone())
	if diff := cmp.Diff([]string{"lost-strong"}, matchIDs(matches)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}
	m := matches[0]
	if m.FoundItemID != "found-1" || m.FoundUserID != "finder" || m.LostUserID != "alice" {
		t.Fatalf("match oriented incorrectly: %+v", m)
	}
	if m.Status != models.MatchStatusPending || m.ExchangeStatus != models.ExchangeStatusNone {
		t.Fatalf("unexpected initial states: %s/%s", m.Status, m.ExchangeStatus)
	}
	if m.Confidence <= 50 || m.Source != models.MatchSourceRubric {
		t.Fatalf("unexpected confidence/source: %d/%s", m.Confidence, m.Source)
	}
}

func TestRankFallsBackToAllCategories(t *testing.T) {
	pool := []models.Item{{
		ID: "lost-misfiled", OwnerID: "alice", Kind: models.KindLost, Category: "Other",
		Description: "Blue iPhone with cracked screen found near station", ColorTokens: []string{"blue", "black"},
		Status: models.ItemStatusOpen, CreatedAt: day0,
	}}
	subject := foundPhone()
	subject.ColorTokens = []string{"black"}
	items := &stubItems{items: pool}
	r := NewRanker(items, nil, testLogger{}, Config{ShowGlobal: true})

	matches := r.Rank(context.Background(), subject)
	if diff := cmp.Diff([]string{"lost/Electronics", "lost/"}, items.calls); diff != "" {
		t.Fatalf("unexpected store calls (-want +got):\n%s", diff)
	}
	if len(matches) != 1 || matches[0].LostItemID != "lost-misfiled" {
		t.Fatalf("expected the cross-category candidate, got %+v", matches)
	}
}

func TestRankEmptyPool(t *testing.T) {
	r := NewRanker(&stubItems{}, nil, testLogger{}, Config{})
	matches := r.Rank(context.Background(), foundPhone())
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", matches)
	}
}

func TestRankStoreFailureYieldsEmptyList(t *testing.T) {
	r := NewRanker(&stubItems{err: errors.New("db down")}, nil, testLogger{}, Config{})
	if matches := r.Rank(context.Background(), foundPhone()); len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
}

func TestRankOrdersByConfidenceThenRecency(t *testing.T) {
	base := models.Item{Kind: models.KindLost, Category: "Electronics", Status: models.ItemStatusOpen,
		Description: "Blue iPhone with cracked screen found near station"}
	older, newer, weaker := base, base, base
	older.ID, older.CreatedAt = "older", day0
	newer.ID, newer.CreatedAt = "newer", day0
	weaker.ID, weaker.CreatedAt = "weaker", day0
	weaker.Description = "Blue iPhone with scratches"
	subject := foundPhone()

	// same distance to the subject, so equal confidence; tie broken by recency
	older.CreatedAt = subject.CreatedAt.Add(-time.Hour)
	newer.CreatedAt = subject.CreatedAt.Add(time.Hour)

	r := NewRanker(&stubItems{items: []models.Item{weaker, older, newer}}, nil, testLogger{}, Config{ShowGlobal: true})
	matches := r.Rank(context.Background(), subject)
	if diff := cmp.Diff([]string{"newer", "older", "weaker"}, matchIDs(matches)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if matches[0].Confidence != matches[1].Confidence {
		t.Fatalf("expected tie between newer and older, got %d vs %d", matches[0].Confidence, matches[1].Confidence)
	}
}

func TestRankRadiusFilter(t *testing.T) {
	subject := foundPhone()
	subject.Location = &models.GeoPoint{Lat: 43.2500, Lng: 76.9000}
	near := lostPool()[0]
	near.Location = &models.GeoPoint{Lat: 43.2550, Lng: 76.9050}
	far := near
	far.ID = "lost-far"
	far.Location = &models.GeoPoint{Lat: 51.1600, Lng: 71.4700}

	r := NewRanker(&stubItems{items: []models.Item{near, far}}, nil, testLogger{}, Config{SearchRadiusKm: 5})
	if diff := cmp.Diff([]string{"lost-strong"}, matchIDs(r.Rank(context.Background(), subject))); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}

	global := NewRanker(&stubItems{items: []models.Item{near, far}}, nil, testLogger{}, Config{SearchRadiusKm: 5, ShowGlobal: true})
	if got := len(global.Rank(context.Background(), subject)); got != 2 {
		t.Fatalf("expected both candidates with global search, got %d", got)
	}
}

func TestRankSemanticScoresAreUsedAndSanitised(t *testing.T) {
	semantic := &stubSemantic{scores: []SemanticScore{
		{ID: "lost-strong", Confidence: 120, Reason: "same model and damage"},
		{ID: "unknown", Confidence: 99},
	}}
	r := NewRanker(&stubItems{items: lostPool()}, semantic, testLogger{}, Config{ShowGlobal: true, MaxSemanticDeviation: 40})
	matches := r.Rank(context.Background(), foundPhone())
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %+v", matches)
	}
	if matches[0].Confidence != 100 || matches[0].Source != models.MatchSourceSemantic || matches[0].Reason == "" {
		t.Fatalf("expected clamped semantic score, got %+v", matches[0])
	}
	for _, c := range semantic.received {
		if c.PrivateDetails != nil || c.Image != "" {
			t.Fatalf("candidate %s sent with private data or image", c.ID)
		}
	}
	if semantic.subject.Image == "" {
		t.Fatalf("subject image should be forwarded to the matcher")
	}
}

func TestRankSemanticOutlierFallsBackToRubric(t *testing.T) {
	semantic := &stubSemantic{scores: []SemanticScore{{ID: "lost-weak", Confidence: 97}}}
	r := NewRanker(&stubItems{items: lostPool()}, semantic, testLogger{}, Config{ShowGlobal: true, MaxSemanticDeviation: 40})
	matches := r.Rank(context.Background(), foundPhone())
	if diff := cmp.Diff([]string{"lost-strong"}, matchIDs(matches)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}
	if matches[0].Source != models.MatchSourceRubric {
		t.Fatalf("omitted candidate should keep its rubric score, got %s", matches[0].Source)
	}
}

func TestRankSemanticFailureFallsBack(t *testing.T) {
	cases := map[string]*stubSemantic{
		"error":     {err: errors.New("quota exceeded")},
		"timeout":   {delay: time.Second, scores: []SemanticScore{{ID: "lost-strong", Confidence: 90}}},
		"malformed": {scores: []SemanticScore{{ID: "ghost", Confidence: 80}}},
		"nil":       {},
	}
	for name, semantic := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRanker(&stubItems{items: lostPool()}, semantic, testLogger{}, Config{ShowGlobal: true, SemanticTimeout: 20 * time.Millisecond})
			matches := r.Rank(context.Background(), foundPhone())
			if diff := cmp.Diff([]string{"lost-strong"}, matchIDs(matches)); diff != "" {
				t.Fatalf("unexpected matches (-want +got):\n%s", diff)
			}
			if matches[0].Source != models.MatchSourceRubric {
				t.Fatalf("expected rubric fallback, got %s", matches[0].Source)
			}
		})
	}
}

func TestValidateSemantic(t *testing.T) {
	candidates := []models.Item{{ID: "a"}, {ID: "b"}}
	res := ValidateSemantic([]SemanticScore{
		{ID: "a", Confidence: -3},
		{ID: "a", Confidence: 70},
		{ID: "b", Confidence: 64.4},
		{ID: "c", Confidence: 80},
	}, nil, candidates)
	if !res.OK {
		t.Fatalf("expected ok result, got %+v", res)
	}
	if res.Matches["a"].Confidence != 0 || res.Matches["b"].Confidence != 64.4 {
		t.Fatalf("unexpected sanitised scores: %+v", res.Matches)
	}
	if res.Reason == "" {
		t.Fatalf("expected a note about dropped entries")
	}

	empty := ValidateSemantic([]SemanticScore{}, nil, candidates)
	if !empty.OK || len(empty.Matches) != 0 {
		t.Fatalf("an empty answer is a valid 'no matches', got %+v", empty)
	}
}
