package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/jobgram/jobgram/internal/model"
)

// CategorySource supplies the current category names so the model's
// choice is grounded in categories that actually exist. Loaded once per
// call; call volume is bounded by message count.
type CategorySource interface {
	CategoryNames() ([]string, error)
}

// Extractor decides whether a message is a job posting and extracts a
// structured candidate from it. A nil candidate with a nil error means
// "not a job" — an expected, frequent outcome, not a failure.
type Extractor interface {
	Extract(ctx context.Context, messageText, channelCategory string) (*model.JobCandidate, error)
}

// LLMExtractor implements Extractor with a single structured LLM call
// per message.
type LLMExtractor struct {
	provider   LLMProvider
	categories CategorySource
	tmpl       *template.Template
	logger     *slog.Logger
}

// NewLLMExtractor creates an extractor wired to the given provider and
// category source.
func NewLLMExtractor(provider LLMProvider, categories CategorySource, tmpl *template.Template, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider:   provider,
		categories: categories,
		tmpl:       tmpl,
		logger:     logger,
	}
}

// rawExtraction is the JSON shape the prompt instructs the model to return.
type rawExtraction struct {
	IsJob                 bool     `json:"is_job"`
	Title                 string   `json:"title"`
	Company               string   `json:"company"`
	Location              string   `json:"location"`
	Salary                string   `json:"salary"`
	ContractType          string   `json:"contract_type"`
	Category              string   `json:"category"`
	CategoryConfidence    *float64 `json:"category_confidence"`
	AlternativeCategories []string `json:"alternative_categories"`
	Description           string   `json:"description"`
	Tags                  []string `json:"tags"`
	SkillsRequired        []string `json:"skills_required"`
	SearchKeywords        []string `json:"search_keywords"`
	IsRemote              bool     `json:"is_remote"`
	Currency              string   `json:"currency"`
	ApplyLink             string   `json:"apply_link"`
	ExpirationDate        string   `json:"expiration_date"`
	RelatedURLs           []string `json:"related_urls"`
}

// Extract asks the model to classify messageText. Returns (nil, nil)
// when the message is not a job posting or the model's JSON is
// malformed; returns an error only for transport/model failures, which
// the caller records without aborting the channel.
func (e *LLMExtractor) Extract(ctx context.Context, messageText, channelCategory string) (*model.JobCandidate, error) {
	names, err := e.categories.CategoryNames()
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	var promptBuf bytes.Buffer
	err = e.tmpl.Execute(&promptBuf, struct {
		ChannelCategory string
		Categories      string
		Message         string
	}{
		ChannelCategory: channelCategory,
		Categories:      strings.Join(names, ", "),
		Message:         messageText,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, extractionSystemPrompt, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	var ext rawExtraction
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &ext); err != nil {
		// Malformed model output is an expected non-event, same as "not a job".
		e.logger.Debug("unparsable model output, skipping message", "error", err)
		return nil, nil
	}

	if !ext.IsJob {
		return nil, nil
	}

	return candidateFromRaw(ext), nil
}

// candidateFromRaw applies the documented defaults for fields the model omitted.
func candidateFromRaw(ext rawExtraction) *model.JobCandidate {
	contractType := ext.ContractType
	if contractType == "" {
		contractType = "Full-time"
	}

	confidence := 0.5
	if ext.CategoryConfidence != nil {
		confidence = *ext.CategoryConfidence
	}

	return &model.JobCandidate{
		Title:                 ext.Title,
		Company:               ext.Company,
		Location:              ext.Location,
		Salary:                ext.Salary,
		ContractType:          contractType,
		Category:              ext.Category,
		CategoryConfidence:    confidence,
		AlternativeCategories: orEmpty(ext.AlternativeCategories),
		Description:           ext.Description,
		Tags:                  orEmpty(ext.Tags),
		SkillsRequired:        orEmpty(ext.SkillsRequired),
		SearchKeywords:        orEmpty(ext.SearchKeywords),
		IsRemote:              ext.IsRemote,
		Currency:              ext.Currency,
		ApplyLink:             ext.ApplyLink,
		ExpirationDate:        ext.ExpirationDate,
		RelatedURLs:           orEmpty(ext.RelatedURLs),
	}
}

// stripCodeFence removes an optional markdown fence around the model's JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
