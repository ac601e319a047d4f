// Package classifier turns one feedback text into a sentiment, summary,
// theme and urgency judgment using an external model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"FeedbackInsights/internal/domain"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/ports"
)

const summaryPrefixRunes = 50

// Classifier implements ports.Classifier on top of a ModelClient.
type Classifier struct {
	client ports.ModelClient
	logger *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// New wires a model client. A nil client makes every call fail over to the
// sentinel classification.
func New(client ports.ModelClient, log *slog.Logger) *Classifier {
	return &Classifier{client: client, logger: logging.OrDiscard(log)}
}

// Classify asks the model once and normalizes its answer. Any failure yields
// domain.FailedClassification.
func (c *Classifier) Classify(ctx context.Context, text string) domain.Classification {
	if c.client == nil {
		c.logger.Warn("classification failed", "error", "model client is not configured")
		return domain.FailedClassification()
	}

	raw, err := c.client.Generate(ctx, BuildPrompt(text))
	if err != nil {
		c.logger.Warn("classification failed", "error", err)
		return domain.FailedClassification()
	}

	result, err := Parse(raw, text)
	if err != nil {
		c.logger.Warn("classification failed", "error", err)
		return domain.FailedClassification()
	}

	return result
}

// BuildPrompt embeds the feedback text in the instruction sent to the model.
func BuildPrompt(text string) string {
	quoted, _ := json.Marshal(text)
	return fmt.Sprintf(`Analyze the following student feedback text. You must return a single JSON object and nothing else.
The JSON object must have exactly these keys:
1. "sentiment": one of "Positive", "Negative" or "Neutral".
2. "summary": a concise, one-sentence summary of the main point.
3. "theme": the single most relevant topic (e.g. "Instructor Pace", "Material Clarity", "Engagement").
4. "isUrgent": a boolean, true only if the feedback contains an immediate, urgent concern.

Feedback text: %s`, quoted)
}

// answer mirrors the JSON object requested from the model. Fields are left
// raw so that loosely typed answers can be normalized.
type answer struct {
	Sentiment json.RawMessage `json:"sentiment"`
	Summary   json.RawMessage `json:"summary"`
	Theme     json.RawMessage `json:"theme"`
	Themes    json.RawMessage `json:"themes"`
	IsUrgent  json.RawMessage `json:"isUrgent"`
}

func (a answer) empty() bool {
	return len(a.Sentiment) == 0 && len(a.Summary) == 0 && len(a.Theme) == 0 &&
		len(a.Themes) == 0 && len(a.IsUrgent) == 0
}

// Parse decodes a raw model answer for the given feedback text.
func Parse(raw, text string) (domain.Classification, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return domain.Classification{}, errors.New("empty model response")
	}
	if !strings.HasPrefix(body, "{") {
		return domain.Classification{}, fmt.Errorf("model response is not a JSON object: %.40q", body)
	}

	var a answer
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return domain.Classification{}, fmt.Errorf("decode model response: %w", err)
	}
	if a.empty() {
		return domain.Classification{}, errors.New("model response has none of the expected keys")
	}

	themes := themesFrom(a.Theme)
	if len(themes) == 0 {
		themes = themesFrom(a.Themes)
	}
	if len(themes) == 0 {
		themes = []string{domain.ThemeGeneral}
	}

	summary := strings.TrimSpace(stringFrom(a.Summary))
	if summary == "" {
		summary = fallbackSummary(text)
	}

	return domain.Classification{
		Sentiment: domain.ParseSentiment(stringFrom(a.Sentiment)),
		Summary:   summary,
		Themes:    themes,
		IsUrgent:  urgentFrom(a.IsUrgent),
	}, nil
}

func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func stringFrom(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func themesFrom(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		for _, item := range items {
			list = append(list, stringFrom(item))
		}
	} else {
		list = []string{stringFrom(raw)}
	}

	themes := make([]string, 0, len(list))
	for _, theme := range list {
		theme = strings.TrimSpace(theme)
		// Error is reserved for failed classifications.
		if theme == "" || strings.EqualFold(theme, domain.ThemeError) || slices.Contains(themes, theme) {
			continue
		}
		themes = append(themes, theme)
	}
	return themes
}

// urgentFrom accepts JSON true or the string "true".
func urgentFrom(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return stringFrom(raw) == "true"
}

func fallbackSummary(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= summaryPrefixRunes {
		return string(runes)
	}
	return string(runes[:summaryPrefixRunes]) + "..."
}
