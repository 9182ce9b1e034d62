// Package parse extracts the structured parts of a natural-language
// question about member sentiment. The parser only identifies what the
// question says: mentions stay verbatim and unresolved, temporal wording
// becomes a symbolic expression, and anything the question doesn't state
// stays absent. Resolution against the corpus happens downstream.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
)

// DefaultModel is the model used when none is configured
const DefaultModel = "claude-sonnet-4-5-20250929"

const systemPrompt = `You extract the structured parts of questions about customer sentiment towards UK building societies. Respond with a single JSON object and nothing else:

{
  "is_follow_up": bool,          // true if the question builds on the previous one ("what about...", "and for Leeds?", pronouns referring back)
  "primary_mentions": [string],  // organization names exactly as written, NOT normalized or corrected
  "comparison_mentions": [string], // organizations the primary ones are compared against
  "timeframe": {                 // omit entirely if the question names no time period
    "kind": "all_available" | "last_12_months" | "last_24_months" | "calendar_year" | "since_covid" | "pre_covid" | "absolute_range" | "recent_generic",
    "year": int,                 // calendar_year only
    "start": "YYYY-MM-DD",       // absolute_range only
    "end": "YYYY-MM-DD",         // absolute_range only
    "raw": string                // the temporal wording as written
  },
  "focus_areas": [string],       // only from: overall, digital_banking, mobile_app, branches, mortgages, savings, current_accounts, customer_service, complaints_handling, fees_and_rates
  "question_type": string,       // overall_sentiment, comparison, trend_over_time, drivers_of_sentiment, examples_only, volume_and_mix; omit if unclear
  "sentiment_focus": string,     // all, mostly_negative, mostly_positive; omit unless the question asks for one side
  "detail_level": string         // brief, standard, board_level_summary; omit unless stated
}

Copy mentions verbatim, including misspellings and abbreviations. Omit every field the question does not state; do not guess defaults.`

// Parser turns free-text questions into partially populated intent records
type Parser struct {
	client anthropic.Client
	model  anthropic.Model
	logger *slog.Logger
}

// NewParser creates a parser using the given API key and model name.
// An empty modelName selects DefaultModel.
func NewParser(apiKey string, modelName string, logger *slog.Logger) *Parser {
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Parser{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(modelName),
		logger: logger,
	}
}

// Parse extracts the structured parts of one question
func (p *Parser) Parse(ctx context.Context, question string) (model.ParsedIntent, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
	if err != nil {
		return model.ParsedIntent{}, helper.NewError("anthropic message", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return model.ParsedIntent{}, helper.NewError("anthropic message", fmt.Errorf("no text content in response"))
	}

	parsed, err := decodeIntent([]byte(extractJSON(responseText)))
	if err != nil {
		return model.ParsedIntent{}, err
	}

	p.logger.Debug(
		"parsed question",
		slog.Bool("followUp", parsed.IsFollowUp),
		slog.Int("mentions", len(parsed.PrimaryMentions)+len(parsed.ComparisonMentions)),
		slog.Int64("tokensIn", message.Usage.InputTokens),
		slog.Int64("tokensOut", message.Usage.OutputTokens),
	)

	return parsed, nil
}

// wire types mirror the JSON contract of the system prompt
type timeframeWire struct {
	Kind  string `json:"kind"`
	Year  int    `json:"year,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

type intentWire struct {
	IsFollowUp         bool           `json:"is_follow_up"`
	PrimaryMentions    []string       `json:"primary_mentions"`
	ComparisonMentions []string       `json:"comparison_mentions"`
	Timeframe          *timeframeWire `json:"timeframe"`
	FocusAreas         []string       `json:"focus_areas"`
	QuestionType       string         `json:"question_type"`
	SentimentFocus     string         `json:"sentiment_focus"`
	DetailLevel        string         `json:"detail_level"`
}

// decodeIntent maps the wire JSON onto the intent record, dropping values
// outside the controlled vocabularies instead of failing the whole parse
func decodeIntent(data []byte) (model.ParsedIntent, error) {
	var wire intentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.ParsedIntent{}, helper.NewError("unmarshal parsed intent", err)
	}

	parsed := model.ParsedIntent{
		IsFollowUp:         wire.IsFollowUp,
		PrimaryMentions:    cleanMentions(wire.PrimaryMentions),
		ComparisonMentions: cleanMentions(wire.ComparisonMentions),
	}

	if wire.Timeframe != nil && wire.Timeframe.Kind != "" {
		expression := &model.TimeframeExpression{
			Kind: model.TimeframeKind(wire.Timeframe.Kind),
			Year: wire.Timeframe.Year,
			Raw:  wire.Timeframe.Raw,
		}
		if start, err := time.Parse("2006-01-02", wire.Timeframe.Start); err == nil {
			expression.Start = &start
		}
		if end, err := time.Parse("2006-01-02", wire.Timeframe.End); err == nil {
			expression.End = &end
		}
		parsed.Timeframe = expression
	}

	for _, area := range wire.FocusAreas {
		parsed.FocusAreas = append(parsed.FocusAreas, model.FocusArea(area))
	}

	switch questionType := model.QuestionType(wire.QuestionType); questionType {
	case model.QuestionOverallSentiment, model.QuestionComparison, model.QuestionTrendOverTime,
		model.QuestionDriversOf, model.QuestionExamplesOnly, model.QuestionVolumeAndMix:
		parsed.QuestionType = &questionType
	}

	switch sentimentFocus := model.SentimentFocus(wire.SentimentFocus); sentimentFocus {
	case model.SentimentFocusAll, model.SentimentFocusNegative, model.SentimentFocusPositive:
		parsed.SentimentFocus = &sentimentFocus
	}

	switch detailLevel := model.DetailLevel(wire.DetailLevel); detailLevel {
	case model.DetailBrief, model.DetailStandard, model.DetailBoard:
		parsed.DetailLevel = &detailLevel
	}

	return parsed, nil
}

func cleanMentions(mentions []string) []string {
	var cleaned []string
	for _, mention := range mentions {
		mention = strings.TrimSpace(mention)
		if mention != "" {
			cleaned = append(cleaned, mention)
		}
	}
	return cleaned
}

// extractJSON strips surrounding prose or code fences from a response,
// keeping the outermost JSON object
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
