package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"finderguard/internal/matching"
	"finderguard/internal/models"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You are a lost and found matching assistant.
Compare the subject item against the candidate items of the opposite kind.
Weigh category, colours, brand or model and descriptive details. Missing
details are not evidence against a match. Different brand and different
colour means no match. Only use the fields you are given.
Answer with a JSON object {"matches": [{"id": "candidate id", "confidence": 0-100, "reason": "short explanation"}]}
and include only candidates with confidence above 50.`

// Completer is the chat-completions call used by the matcher.
type Completer interface {
	Complete(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error)
}

// Logger is a minimal logger interface required by the matcher.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// MatcherConfig holds the semantic matcher settings.
type MatcherConfig struct {
	Model string
	// Attempts bounds calls per ranking, including the first one.
	Attempts uint
	// RetryDelay is the pause before a retry.
	RetryDelay time.Duration
}

// Matcher scores candidates with a language model. It implements
// matching.SemanticMatcher.
type Matcher struct {
	client Completer
	logger Logger
	cfg    MatcherConfig
}

// NewMatcher creates a matcher.
func NewMatcher(client Completer, logger Logger, cfg MatcherConfig) *Matcher {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}
	return &Matcher{client: client, logger: logger, cfg: cfg}
}

type candidateSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Colors      string `json:"colors"`
	Brand       string `json:"brand"`
	Location    string `json:"location"`
	Reported    string `json:"reported"`
}

func summarize(it models.Item) candidateSummary {
	f := matching.Extract(it)
	s := candidateSummary{
		ID:          it.ID,
		Title:       it.Title,
		Category:    it.Category,
		Description: it.Description,
		Colors:      "not specified",
		Brand:       "not specified",
		Location:    "not specified",
		Reported:    it.CreatedAt.Format("2006-01-02"),
	}
	if s.Description == "" {
		s.Description = "no description provided"
	}
	if colors := f.ColorList(); len(colors) > 0 {
		s.Colors = strings.Join(colors, ", ")
	}
	if f.Brand != "" {
		s.Brand = f.Brand
	}
	if it.Location != nil && it.Location.Address != "" {
		s.Location = it.Location.Address
	}
	return s
}

func buildMessages(subject models.Item, candidates []models.Item) ([]ChatMessage, error) {
	summaries := make([]candidateSummary, len(candidates))
	for i, c := range candidates {
		summaries[i] = summarize(c)
	}
	data, err := json.MarshalIndent(struct {
		Subject    candidateSummary   `json:"subject"`
		Kind       string             `json:"subject_kind"`
		Candidates []candidateSummary `json:"candidates"`
	}{summarize(subject), subject.Kind, summaries}, "", "  ")
	if err != nil {
		return nil, err
	}

	user := ChatMessage{Role: "user", Content: string(data)}
	if subject.Image != "" {
		user = ChatMessage{Role: "user", Parts: []ContentPart{
			{Type: "text", Text: string(data)},
			{Type: "image_url", ImageURL: &ImageURL{URL: subject.Image}},
		}}
	}
	return []ChatMessage{{Role: "system", Content: systemPrompt}, user}, nil
}

// Rank asks the model to score candidates against subject. Transient
// failures are retried within ctx.
func (m *Matcher) Rank(ctx context.Context, subject models.Item, candidates []models.Item) ([]matching.SemanticScore, error) {
	if len(candidates) == 0 {
		return []matching.SemanticScore{}, nil
	}
	messages, err := buildMessages(subject, candidates)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	req := ChatCompletionRequest{Model: m.cfg.Model, Messages: messages, JSON: true}

	resp, err := retry.DoWithData(
		func() (ChatCompletionResponse, error) {
			return m.client.Complete(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(m.cfg.Attempts),
		retry.Delay(m.cfg.RetryDelay),
		retry.MaxJitter(m.cfg.RetryDelay/2),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			if m.logger != nil {
				m.logger.Infof("semantic matcher retry %d for %s: %v", n+1, subject.ID, err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return parseScores(resp.Content)
}

type rawScore struct {
	ID          string  `json:"id"`
	LostItemID  string  `json:"lostItemId"`
	FoundItemID string  `json:"foundItemId"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// parseScores accepts {"matches": [...]} or a bare array, optionally
// wrapped in a markdown code fence.
func parseScores(content string) ([]matching.SemanticScore, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty semantic answer")
	}

	var raw []rawScore
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			return nil, fmt.Errorf("decode semantic answer: %w", err)
		}
	} else {
		var wrapped struct {
			Matches *[]rawScore `json:"matches"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("decode semantic answer: %w", err)
		}
		if wrapped.Matches == nil {
			return nil, errors.New("semantic answer has no matches field")
		}
		raw = *wrapped.Matches
	}

	scores := make([]matching.SemanticScore, 0, len(raw))
	for _, r := range raw {
		id := r.ID
		if id == "" {
			id = r.LostItemID
		}
		if id == "" {
			id = r.FoundItemID
		}
		scores = append(scores, matching.SemanticScore{ID: id, Confidence: r.Confidence, Reason: r.Reason})
	}
	return scores, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}
