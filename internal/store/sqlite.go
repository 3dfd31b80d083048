package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobgram/jobgram/internal/model"
)

// Store wraps a SQLite database holding channels, categories, jobs, and
// run-progress records.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	id                 TEXT PRIMARY KEY,
	username           TEXT NOT NULL UNIQUE,
	title              TEXT NOT NULL DEFAULT '',
	image_url          TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	is_active          INTEGER NOT NULL DEFAULT 1,
	scraping_enabled   INTEGER NOT NULL DEFAULT 1,
	total_jobs_scraped INTEGER NOT NULL DEFAULT 0,
	last_scraped       DATETIME
);

CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	path        TEXT NOT NULL,
	full_path   TEXT NOT NULL,
	parent_path TEXT NOT NULL DEFAULT '',
	level       INTEGER NOT NULL DEFAULT 0,
	job_count   INTEGER NOT NULL DEFAULT 0,
	tags        TEXT NOT NULL DEFAULT '[]',
	keywords    TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS jobs (
	id                     TEXT PRIMARY KEY,
	title                  TEXT NOT NULL,
	company                TEXT NOT NULL DEFAULT '',
	location               TEXT NOT NULL DEFAULT '',
	salary                 TEXT NOT NULL DEFAULT '',
	contract_type          TEXT NOT NULL DEFAULT '',
	currency               TEXT NOT NULL DEFAULT '',
	is_remote              INTEGER NOT NULL DEFAULT 0,
	apply_link             TEXT NOT NULL DEFAULT '',
	description            TEXT NOT NULL DEFAULT '',
	category_id            TEXT NOT NULL DEFAULT '',
	category_path          TEXT NOT NULL DEFAULT '',
	main_category          TEXT NOT NULL DEFAULT '',
	main_category_id       TEXT NOT NULL DEFAULT '',
	category_hierarchy     TEXT NOT NULL DEFAULT '[]',
	confidence             REAL NOT NULL DEFAULT 0,
	alternative_categories TEXT NOT NULL DEFAULT '[]',
	tags                   TEXT NOT NULL DEFAULT '[]',
	skills_required        TEXT NOT NULL DEFAULT '[]',
	search_keywords        TEXT NOT NULL DEFAULT '[]',
	related_urls           TEXT NOT NULL DEFAULT '[]',
	raw_post               TEXT NOT NULL DEFAULT '',
	message_id             INTEGER NOT NULL,
	message_url            TEXT NOT NULL DEFAULT '',
	channel_id             TEXT NOT NULL DEFAULT '',
	channel_name           TEXT NOT NULL DEFAULT '',
	expires_at             DATETIME,
	posted_at              DATETIME NOT NULL,
	extracted_at           DATETIME NOT NULL,
	created_at             DATETIME NOT NULL,
	views                  INTEGER NOT NULL DEFAULT 0,
	clicks                 INTEGER NOT NULL DEFAULT 0,
	UNIQUE (title, company, message_id)
);

CREATE TABLE IF NOT EXISTS run_progress (
	id                       TEXT PRIMARY KEY,
	total_channels           INTEGER NOT NULL DEFAULT 0,
	processed_channels       INTEGER NOT NULL DEFAULT 0,
	current_channel          TEXT NOT NULL DEFAULT '',
	total_jobs_extracted     INTEGER NOT NULL DEFAULT 0,
	total_messages_processed INTEGER NOT NULL DEFAULT 0,
	status                   TEXT NOT NULL,
	started_at               DATETIME NOT NULL,
	completed_at             DATETIME,
	errors                   TEXT NOT NULL DEFAULT '[]'
);
`

// Open opens (or creates) the database at path and ensures the schema
// and the fallback "Other" category exist. Pass ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// Single connection avoids "database is locked" under the
	// sequential-run model; WAL keeps concurrent readers cheap.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Fallback bucket for unresolvable categories; jobCount increments
	// land here when resolution misses.
	_, err = db.Exec(`INSERT OR IGNORE INTO categories (id, name, path, full_path, level)
		VALUES ('other', 'Other', 'Other', 'Other', 0)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding Other category: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- channels ---

// UpsertChannel inserts or updates a channel by username, preserving the
// scrape counters on update.
func (s *Store) UpsertChannel(ch model.Channel) error {
	_, err := s.db.Exec(`INSERT INTO channels (id, username, title, image_url, category, is_active, scraping_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			title = excluded.title,
			image_url = excluded.image_url,
			category = excluded.category,
			is_active = excluded.is_active,
			scraping_enabled = excluded.scraping_enabled`,
		ch.ID, ch.Username, ch.Title, ch.ImageURL, ch.Category,
		boolToInt(ch.IsActive), boolToInt(ch.ScrapingEnabled),
	)
	if err != nil {
		return fmt.Errorf("upserting channel %s: %w", ch.Username, err)
	}
	return nil
}

// ListChannels returns all channels ordered by username.
func (s *Store) ListChannels() ([]model.Channel, error) {
	return s.queryChannels(`SELECT id, username, title, image_url, category,
		is_active, scraping_enabled, total_jobs_scraped, last_scraped
		FROM channels ORDER BY username`)
}

// ActiveScrapingChannels returns channels eligible for a run: active and
// with scraping enabled.
func (s *Store) ActiveScrapingChannels() ([]model.Channel, error) {
	return s.queryChannels(`SELECT id, username, title, image_url, category,
		is_active, scraping_enabled, total_jobs_scraped, last_scraped
		FROM channels WHERE is_active = 1 AND scraping_enabled = 1 ORDER BY username`)
}

func (s *Store) queryChannels(query string) ([]model.Channel, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		var active, scraping int
		var lastScraped sql.NullTime
		if err := rows.Scan(&ch.ID, &ch.Username, &ch.Title, &ch.ImageURL, &ch.Category,
			&active, &scraping, &ch.TotalJobsScraped, &lastScraped); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		ch.IsActive = active != 0
		ch.ScrapingEnabled = scraping != 0
		if lastScraped.Valid {
			t := lastScraped.Time
			ch.LastScraped = &t
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// BumpChannelStats atomically adds jobs to the channel's scrape counter
// and stamps last_scraped.
func (s *Store) BumpChannelStats(channelID string, jobs int, at time.Time) error {
	_, err := s.db.Exec(`UPDATE channels
		SET total_jobs_scraped = total_jobs_scraped + ?, last_scraped = ?
		WHERE id = ?`, jobs, at, channelID)
	if err != nil {
		return fmt.Errorf("updating stats for channel %s: %w", channelID, err)
	}
	return nil
}

// --- categories ---

// UpsertCategory inserts or replaces a category node, preserving the job
// count on update.
func (s *Store) UpsertCategory(c model.Category) error {
	tags, err := json.Marshal(emptyIfNil(c.Tags))
	if err != nil {
		return fmt.Errorf("marshaling tags for %s: %w", c.Name, err)
	}
	keywords, err := json.Marshal(emptyIfNil(c.Keywords))
	if err != nil {
		return fmt.Errorf("marshaling keywords for %s: %w", c.Name, err)
	}
	_, err = s.db.Exec(`INSERT INTO categories (id, name, path, full_path, parent_path, level, tags, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			full_path = excluded.full_path,
			parent_path = excluded.parent_path,
			level = excluded.level,
			tags = excluded.tags,
			keywords = excluded.keywords`,
		c.ID, c.Name, c.Path, c.FullPath, c.ParentPath, c.Level, string(tags), string(keywords),
	)
	if err != nil {
		return fmt.Errorf("upserting category %s: %w", c.Name, err)
	}
	return nil
}

// CategoryNames returns all category names, used to ground the model's
// category choice.
func (s *Store) CategoryNames() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM categories ORDER BY level, name")
	if err != nil {
		return nil, fmt.Errorf("querying category names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning category name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CategoryByName looks a category up by exact name. Returns nil when no
// category matches.
func (s *Store) CategoryByName(name string) (*model.Category, error) {
	return s.queryCategory("SELECT id, name, path, full_path, parent_path, level, job_count, tags, keywords FROM categories WHERE name = ?", name)
}

// CategoryByPath looks a category up by its path. Returns nil when no
// category matches.
func (s *Store) CategoryByPath(path string) (*model.Category, error) {
	return s.queryCategory("SELECT id, name, path, full_path, parent_path, level, job_count, tags, keywords FROM categories WHERE path = ?", path)
}

func (s *Store) queryCategory(query string, arg string) (*model.Category, error) {
	var c model.Category
	var tags, keywords string
	err := s.db.QueryRow(query, arg).Scan(&c.ID, &c.Name, &c.Path, &c.FullPath,
		&c.ParentPath, &c.Level, &c.JobCount, &tags, &keywords)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying category %q: %w", arg, err)
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags for %q: %w", arg, err)
	}
	if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshaling keywords for %q: %w", arg, err)
	}
	return &c, nil
}

// IncrementJobCount atomically bumps a category's job count by one.
// The counter is monotonic: nothing ever decrements it.
func (s *Store) IncrementJobCount(categoryID string) error {
	_, err := s.db.Exec("UPDATE categories SET job_count = job_count + 1 WHERE id = ?", categoryID)
	if err != nil {
		return fmt.Errorf("incrementing job count for %s: %w", categoryID, err)
	}
	return nil
}

// --- jobs ---

// JobExists reports whether a job with the exact (title, company,
// message id) triple is already persisted.
func (s *Store) JobExists(title, company string, messageID int64) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM jobs WHERE title = ? AND company = ? AND message_id = ?",
		title, company, messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking job existence: %w", err)
	}
	return true, nil
}

// InsertJob writes a fully built job record. The unique constraint on
// (title, company, message_id) backstops the dedup gate.
func (s *Store) InsertJob(j model.Job) error {
	hierarchy, err := json.Marshal(emptyIfNil(j.Hierarchy))
	if err != nil {
		return fmt.Errorf("marshaling hierarchy: %w", err)
	}
	alts, err := json.Marshal(emptyIfNil(j.AlternativeCategories))
	if err != nil {
		return fmt.Errorf("marshaling alternative categories: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(j.Tags))
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	skills, err := json.Marshal(emptyIfNil(j.SkillsRequired))
	if err != nil {
		return fmt.Errorf("marshaling skills: %w", err)
	}
	keywords, err := json.Marshal(emptyIfNil(j.SearchKeywords))
	if err != nil {
		return fmt.Errorf("marshaling search keywords: %w", err)
	}
	related, err := json.Marshal(emptyIfNil(j.RelatedURLs))
	if err != nil {
		return fmt.Errorf("marshaling related urls: %w", err)
	}

	var expires any
	if j.ExpiresAt != nil {
		expires = *j.ExpiresAt
	}

	_, err = s.db.Exec(`INSERT INTO jobs (
		id, title, company, location, salary, contract_type, currency, is_remote,
		apply_link, description, category_id, category_path, main_category,
		main_category_id, category_hierarchy, confidence, alternative_categories,
		tags, skills_required, search_keywords, related_urls, raw_post,
		message_id, message_url, channel_id, channel_name,
		expires_at, posted_at, extracted_at, created_at, views, clicks
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		j.ID, j.Title, j.Company, j.Location, j.Salary, j.ContractType, j.Currency, boolToInt(j.IsRemote),
		j.ApplyLink, j.Description, j.CategoryID, j.CategoryPath, j.MainCategory,
		j.MainCategoryID, string(hierarchy), j.Confidence, string(alts),
		string(tags), string(skills), string(keywords), string(related), j.RawPost,
		j.MessageID, j.MessageURL, j.ChannelID, j.ChannelName,
		expires, j.PostedAt, j.ExtractedAt, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting job %q: %w", j.Title, err)
	}
	return nil
}

// CountJobs returns the number of persisted jobs.
func (s *Store) CountJobs() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return n, nil
}

// --- run progress ---

// CreateRunProgress inserts a fresh progress record for a run.
func (s *Store) CreateRunProgress(p model.RunProgress) error {
	errs, err := json.Marshal(emptyErrsIfNil(p.Errors))
	if err != nil {
		return fmt.Errorf("marshaling run errors: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO run_progress (
		id, total_channels, processed_channels, current_channel,
		total_jobs_extracted, total_messages_processed, status, started_at, errors
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.TotalChannels, p.ProcessedChannels, p.CurrentChannel,
		p.TotalJobsExtracted, p.TotalMessagesProcessed, p.Status, p.StartedAt, string(errs),
	)
	if err != nil {
		return fmt.Errorf("creating run progress %s: %w", p.RunID, err)
	}
	return nil
}

// UpdateRunProgress writes the mutable fields of a progress record.
// Runs are single-writer, so a full-field update is race-free.
func (s *Store) UpdateRunProgress(p model.RunProgress) error {
	errs, err := json.Marshal(emptyErrsIfNil(p.Errors))
	if err != nil {
		return fmt.Errorf("marshaling run errors: %w", err)
	}
	var completed any
	if p.CompletedAt != nil {
		completed = *p.CompletedAt
	}
	_, err = s.db.Exec(`UPDATE run_progress SET
		processed_channels = ?, current_channel = ?, total_jobs_extracted = ?,
		total_messages_processed = ?, status = ?, completed_at = ?, errors = ?
		WHERE id = ?`,
		p.ProcessedChannels, p.CurrentChannel, p.TotalJobsExtracted,
		p.TotalMessagesProcessed, p.Status, completed, string(errs), p.RunID,
	)
	if err != nil {
		return fmt.Errorf("updating run progress %s: %w", p.RunID, err)
	}
	return nil
}

// GetRunProgress returns the progress record for a run, or nil if the
// run id is unknown.
func (s *Store) GetRunProgress(runID string) (*model.RunProgress, error) {
	var p model.RunProgress
	var completed sql.NullTime
	var errsJSON string
	err := s.db.QueryRow(`SELECT id, total_channels, processed_channels, current_channel,
		total_jobs_extracted, total_messages_processed, status, started_at, completed_at, errors
		FROM run_progress WHERE id = ?`, runID).Scan(
		&p.RunID, &p.TotalChannels, &p.ProcessedChannels, &p.CurrentChannel,
		&p.TotalJobsExtracted, &p.TotalMessagesProcessed, &p.Status, &p.StartedAt,
		&completed, &errsJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run progress %s: %w", runID, err)
	}
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(errsJSON), &p.Errors); err != nil {
		return nil, fmt.Errorf("unmarshaling run errors for %s: %w", runID, err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyErrsIfNil(e []model.RunError) []model.RunError {
	if e == nil {
		return []model.RunError{}
	}
	return e
}
