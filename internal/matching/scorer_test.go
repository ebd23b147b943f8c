package matching

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"finderguard/internal/models"
)

var day0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func TestExtractColorsAndBrand(t *testing.T) {
	item := models.Item{
		Category:    "Electronics",
		Description: "Black Samsung Galaxy phone in a red case, red strap. Also an iPhone charger",
		CreatedAt:   day0,
	}
	f := Extract(item)
	if diff := cmp.Diff([]string{"black", "red"}, f.ColorList()); diff != "" {
		t.Fatalf("colors mismatch (-want +got):\n%s", diff)
	}
	if f.Brand != "samsung" {
		t.Fatalf("expected leftmost brand samsung, got %q", f.Brand)
	}
	if f.Category != "electronics" {
		t.Fatalf("expected folded category, got %q", f.Category)
	}
	if _, ok := f.Keywords["strap"]; !ok {
		t.Fatalf("expected punctuation-trimmed keyword strap in %v", f.Keywords)
	}
	if _, ok := f.Keywords["red"]; ok {
		t.Fatalf("three-letter words must not be keywords")
	}
}

func TestExtractIgnoresPrivateDetails(t *testing.T) {
	item := models.Item{
		Description:    "wallet",
		PrivateDetails: &models.PrivateDetails{SerialNumber: "SN-GOLD-ROLEX", DistinguishingMarks: "blue scratch"},
	}
	f := Extract(item)
	if len(f.Colors) != 0 || f.Brand != "" {
		t.Fatalf("private details leaked into features: %+v", f)
	}
}

func TestExtractUsesExplicitTokens(t *testing.T) {
	item := models.Item{Description: "a phone", ColorTokens: []string{" Blue "}, BrandToken: "iPhone"}
	f := Extract(item)
	if _, ok := f.Colors["blue"]; !ok {
		t.Fatalf("expected explicit colour token, got %v", f.ColorList())
	}
	if f.Brand != "iphone" {
		t.Fatalf("expected explicit brand, got %q", f.Brand)
	}
}

func TestScoreMatchingPhones(t *testing.T) {
	lost := models.Item{
		Kind:        models.KindLost,
		Category:    "Electronics",
		Description: "Blue iPhone with cracked screen protector",
		ColorTokens: []string{"blue"},
		BrandToken:  "iphone",
		CreatedAt:   day0,
	}
	found := models.Item{
		Kind:        models.KindFound,
		Category:    "Electronics",
		Description: "Blue iPhone with cracked screen found near station",
		ColorTokens: []string{"blue"},
		BrandToken:  "iphone",
		CreatedAt:   day0.Add(3 * time.Hour),
	}
	got := ScoreItems(lost, found)
	if got < 80 {
		t.Fatalf("expected confidence >= 80, got %d (%+v)", got, Explain(Extract(lost), Extract(found)))
	}
}

func TestScoreUnrelatedItems(t *testing.T) {
	lost := models.Item{Category: "Jewelry", Description: "Gold ring engraved initials", CreatedAt: day0}
	found := models.Item{Category: "Electronics", Description: "Black laptop charger", CreatedAt: day0}
	if got := ScoreItems(lost, found); got > 20 {
		t.Fatalf("expected confidence <= 20, got %d", got)
	}
}

func TestExplainSignals(t *testing.T) {
	a := Features{
		Colors:    set("blue", "black", "red"),
		Brand:     "sony",
		Keywords:  set("camera", "strap", "lens"),
		Category:  "electronics",
		CreatedAt: day0,
	}
	b := Features{
		Colors:    set("blue", "black", "red"),
		Brand:     "sony",
		Keywords:  set("camera", "lens", "case", "tripod"),
		Category:  "electronics",
		CreatedAt: day0.Add(84 * time.Hour), // 3.5 days
	}
	got := Explain(a, b)
	want := Breakdown{Category: 30, Color: 20, Brand: 20, Keywords: 8, Recency: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestRecencyDecaysToZero(t *testing.T) {
	a := Features{CreatedAt: day0}
	b := Features{CreatedAt: day0.Add(10 * 24 * time.Hour)}
	if got := Explain(a, b).Recency; got != 0 {
		t.Fatalf("expected no recency points after a week, got %d", got)
	}
}

func TestScoreIsSymmetricAndBounded(t *testing.T) {
	items := []models.Item{
		{Category: "Electronics", Description: "Blue iPhone 12 in a black case", CreatedAt: day0},
		{Category: "electronics", Description: "black iphone, blue case, cracked", CreatedAt: day0.Add(48 * time.Hour)},
		{Category: "Wallet/Keys", Description: "Brown leather wallet with Gucci logo", CreatedAt: day0.Add(-72 * time.Hour)},
		{Category: "Pet", Description: "", CreatedAt: time.Time{}},
		{Category: "Jewelry", Description: "gold silver rolex watch gold", ColorTokens: []string{"gold", "silver", "white"}, CreatedAt: day0},
	}
	for i := range items {
		for j := range items {
			ab := ScoreItems(items[i], items[j])
			ba := ScoreItems(items[j], items[i])
			if ab != ba {
				t.Fatalf("score(%d,%d)=%d but score(%d,%d)=%d", i, j, ab, j, i, ba)
			}
			if ab < 0 || ab > 100 {
				t.Fatalf("score(%d,%d)=%d out of range", i, j, ab)
			}
		}
	}
}

func TestClampConfidence(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 55: 55, 100: 100, 140: 100} {
		if got := ClampConfidence(in); got != want {
			t.Fatalf("ClampConfidence(%d) = %d, want %d", in, got, want)
		}
	}
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
