// Package jobs persists extracted job candidates: dedup gate, record
// denormalization, and category counter updates.
package jobs

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobgram/jobgram/internal/model"
)

// Store is the slice of the document store the persister needs.
type Store interface {
	JobExists(title, company string, messageID int64) (bool, error)
	InsertJob(j model.Job) error
	IncrementJobCount(categoryID string) error
}

// Resolver maps a category name to its hierarchy snapshot.
type Resolver interface {
	Resolve(name string) model.CategoryResolution
}

// Persister writes normalized job records exactly once per unique
// (title, company, message id) triple.
type Persister struct {
	store    Store
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewPersister creates a persister wired with its store and resolver.
func NewPersister(store Store, resolver Resolver, logger *slog.Logger) *Persister {
	return &Persister{
		store:    store,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Save runs the dedup gate, builds the denormalized record, writes it,
// and bumps the category counters. Returns ("", nil) for duplicates.
func (p *Persister) Save(cand *model.JobCandidate, raw model.RawMessage, ch model.Channel) (string, error) {
	exists, err := p.store.JobExists(cand.Title, cand.Company, raw.ID)
	if err != nil {
		// Fail open: a store hiccup must not block ingestion. The unique
		// constraint on insert still catches true duplicates.
		p.logger.Warn("dedup lookup failed, proceeding with save", "title", cand.Title, "error", err)
	}
	if exists {
		p.logger.Debug("duplicate job skipped", "title", cand.Title, "company", cand.Company, "message_id", raw.ID)
		return "", nil
	}

	res := p.resolver.Resolve(cand.Category)
	now := p.now()

	job := model.Job{
		ID:           uuid.New().String(),
		Title:        cand.Title,
		Company:      cand.Company,
		Location:     cand.Location,
		Salary:       cand.Salary,
		ContractType: cand.ContractType,
		Currency:     cand.Currency,
		IsRemote:     cand.IsRemote,
		ApplyLink:    cand.ApplyLink,
		Description:  cand.Description,

		CategoryID:     res.CategoryID,
		CategoryPath:   res.CategoryPath,
		MainCategory:   res.MainCategory,
		MainCategoryID: res.MainCategoryID,
		Hierarchy:      res.Hierarchy,

		Confidence:            cand.CategoryConfidence,
		AlternativeCategories: cand.AlternativeCategories,
		Tags:                  cand.Tags,
		SkillsRequired:        cand.SkillsRequired,
		SearchKeywords: buildSearchKeywords(
			[]string{cand.Title, cand.Company},
			cand.Tags,
			cand.SkillsRequired,
			cand.SearchKeywords,
			res.Hierarchy,
		),
		RelatedURLs: cand.RelatedURLs,

		RawPost:     raw.Text,
		MessageID:   raw.ID,
		MessageURL:  raw.URL,
		ChannelID:   ch.ID,
		ChannelName: ch.Title,

		ExpiresAt:   parseExpiration(cand.ExpirationDate),
		PostedAt:    raw.Timestamp,
		ExtractedAt: now,
		CreatedAt:   now,
	}

	if err := p.store.InsertJob(job); err != nil {
		return "", err
	}

	// Each increment is individually atomic; the main-category bump is
	// skipped when resolution landed on a level-0 category acting as
	// both, so nothing is counted twice.
	if err := p.store.IncrementJobCount(res.CategoryID); err != nil {
		p.logger.Warn("category count increment failed", "category_id", res.CategoryID, "error", err)
	}
	if res.MainCategoryID != res.CategoryID {
		if err := p.store.IncrementJobCount(res.MainCategoryID); err != nil {
			p.logger.Warn("main category count increment failed", "category_id", res.MainCategoryID, "error", err)
		}
	}

	return job.ID, nil
}

// expirationLayouts are tried in order against the model's free-text
// deadline. Anything unparsable stores as no expiration.
var expirationLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"02.01.2006",
	"02/01/2006",
}

func parseExpiration(text string) *time.Time {
	if text == "" {
		return nil
	}
	for _, layout := range expirationLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}
