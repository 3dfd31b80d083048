package model

import "time"

// JobCandidate is the extraction engine's structured output for one
// message the model judged to be a job posting. Transient: always
// enriched into a Job before anything is stored.
type JobCandidate struct {
	Title                 string
	Company               string
	Location              string
	Salary                string
	ContractType          string // defaulted to "Full-time" when the model omits it
	Category              string
	CategoryConfidence    float64 // 0..1, defaulted to 0.5
	AlternativeCategories []string
	Description           string
	Tags                  []string
	SkillsRequired        []string
	SearchKeywords        []string
	IsRemote              bool
	Currency              string
	ApplyLink             string
	ExpirationDate        string // free text, parsed at persist time
	RelatedURLs           []string
}

// Category is reference data maintained by the admin surface. The
// pipeline reads it for resolution and only ever increments JobCount.
type Category struct {
	ID         string
	Name       string
	Path       string
	FullPath   string
	ParentPath string // empty for level-0 categories
	Level      int    // 0 = main, 1 = sub
	JobCount   int64
	Tags       []string
	Keywords   []string
}

// CategoryResolution is the resolver's answer for one category name,
// carrying the full hierarchy snapshot that gets denormalized into the Job.
type CategoryResolution struct {
	CategoryID     string
	CategoryPath   string
	MainCategory   string
	MainCategoryID string
	Hierarchy      []string // [main] or [main, sub]
}

// Job is the persisted record, unique on (Title, Company, MessageID).
// Written exactly once; the pipeline never updates it afterwards.
type Job struct {
	ID      string
	Title   string
	Company string

	Location     string
	Salary       string
	ContractType string
	Currency     string
	IsRemote     bool
	ApplyLink    string
	Description  string

	// Category snapshot at write time; not kept in sync with later edits.
	CategoryID     string
	CategoryPath   string
	MainCategory   string
	MainCategoryID string
	Hierarchy      []string

	Confidence            float64
	AlternativeCategories []string
	Tags                  []string
	SkillsRequired        []string
	SearchKeywords        []string
	RelatedURLs           []string

	RawPost     string
	MessageID   int64
	MessageURL  string
	ChannelID   string
	ChannelName string

	ExpiresAt   *time.Time
	PostedAt    time.Time
	ExtractedAt time.Time
	CreatedAt   time.Time

	// Engagement counters, initialized to zero and mutated only by
	// external consumers.
	Views  int64
	Clicks int64
}
