package store

import (
	"testing"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChannel(username string) model.Channel {
	return model.Channel{
		ID:              "ch-" + username,
		Username:        username,
		Title:           username + " jobs",
		Category:        "technology",
		IsActive:        true,
		ScrapingEnabled: true,
	}
}

func testJob(title, company string, messageID int64) model.Job {
	now := time.Now()
	return model.Job{
		ID:          "job-" + title,
		Title:       title,
		Company:     company,
		MessageID:   messageID,
		Hierarchy:   []string{"Other"},
		PostedAt:    now,
		ExtractedAt: now,
		CreatedAt:   now,
	}
}

func TestOpenSeedsOtherCategory(t *testing.T) {
	s := newTestStore(t)

	other, err := s.CategoryByName("Other")
	if err != nil {
		t.Fatalf("CategoryByName: %v", err)
	}
	if other == nil {
		t.Fatal("expected the Other category to be seeded")
	}
	if other.ID != "other" || other.Level != 0 {
		t.Errorf("Other = {id: %s, level: %d}, want {other, 0}", other.ID, other.Level)
	}
}

func TestUpsertChannelPreservesCounters(t *testing.T) {
	s := newTestStore(t)

	ch := testChannel("jobsfeed")
	if err := s.UpsertChannel(ch); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	if err := s.BumpChannelStats(ch.ID, 5, time.Now()); err != nil {
		t.Fatalf("BumpChannelStats: %v", err)
	}

	// Re-sync the same channel with a new title.
	ch.Title = "Jobs Feed"
	if err := s.UpsertChannel(ch); err != nil {
		t.Fatalf("second UpsertChannel: %v", err)
	}

	channels, err := s.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(channels))
	}
	got := channels[0]
	if got.Title != "Jobs Feed" {
		t.Errorf("title = %q, want updated title", got.Title)
	}
	if got.TotalJobsScraped != 5 {
		t.Errorf("total_jobs_scraped = %d, want 5 preserved across upsert", got.TotalJobsScraped)
	}
	if got.LastScraped == nil {
		t.Error("last_scraped should be preserved across upsert")
	}
}

func TestActiveScrapingChannelsFilters(t *testing.T) {
	s := newTestStore(t)

	active := testChannel("active")
	inactive := testChannel("inactive")
	inactive.IsActive = false
	disabled := testChannel("disabled")
	disabled.ScrapingEnabled = false

	for _, ch := range []model.Channel{active, inactive, disabled} {
		if err := s.UpsertChannel(ch); err != nil {
			t.Fatalf("UpsertChannel %s: %v", ch.Username, err)
		}
	}

	channels, err := s.ActiveScrapingChannels()
	if err != nil {
		t.Fatalf("ActiveScrapingChannels: %v", err)
	}
	if len(channels) != 1 || channels[0].Username != "active" {
		t.Errorf("eligible channels = %v, want only @active", channels)
	}
}

func TestBumpChannelStatsIsCumulative(t *testing.T) {
	s := newTestStore(t)

	ch := testChannel("jobsfeed")
	if err := s.UpsertChannel(ch); err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}

	if err := s.BumpChannelStats(ch.ID, 2, time.Now()); err != nil {
		t.Fatalf("first bump: %v", err)
	}
	if err := s.BumpChannelStats(ch.ID, 3, time.Now()); err != nil {
		t.Fatalf("second bump: %v", err)
	}

	channels, _ := s.ListChannels()
	if channels[0].TotalJobsScraped != 5 {
		t.Errorf("total_jobs_scraped = %d, want 5", channels[0].TotalJobsScraped)
	}
}

func TestCategoryHierarchyLookups(t *testing.T) {
	s := newTestStore(t)

	main := model.Category{ID: "technology", Name: "technology", Path: "technology", FullPath: "technology", Level: 0}
	sub := model.Category{ID: "software-development", Name: "Software Development", Path: "software-development",
		FullPath: "technology/software-development", ParentPath: "technology", Level: 1}
	for _, c := range []model.Category{main, sub} {
		if err := s.UpsertCategory(c); err != nil {
			t.Fatalf("UpsertCategory %s: %v", c.Name, err)
		}
	}

	got, err := s.CategoryByName("Software Development")
	if err != nil {
		t.Fatalf("CategoryByName: %v", err)
	}
	if got == nil || got.ParentPath != "technology" || got.Level != 1 {
		t.Errorf("subcategory lookup = %+v", got)
	}

	parent, err := s.CategoryByPath("technology")
	if err != nil {
		t.Fatalf("CategoryByPath: %v", err)
	}
	if parent == nil || parent.ID != "technology" {
		t.Errorf("parent lookup = %+v", parent)
	}

	missing, err := s.CategoryByName("Underwater Basket Weaving")
	if err != nil {
		t.Fatalf("CategoryByName missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown category, got %+v", missing)
	}
}

func TestIncrementJobCountByN(t *testing.T) {
	s := newTestStore(t)

	cat := model.Category{ID: "technology", Name: "technology", Path: "technology", FullPath: "technology", Level: 0}
	if err := s.UpsertCategory(cat); err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}

	const n = 4
	for i := 0; i < n; i++ {
		if err := s.IncrementJobCount("technology"); err != nil {
			t.Fatalf("IncrementJobCount: %v", err)
		}
	}

	got, _ := s.CategoryByName("technology")
	if got.JobCount != n {
		t.Errorf("job_count = %d, want %d", got.JobCount, n)
	}
}

func TestJobExistsMatchesExactTriple(t *testing.T) {
	s := newTestStore(t)

	if err := s.InsertJob(testJob("Go Developer", "Acme", 42)); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}

	exists, err := s.JobExists("Go Developer", "Acme", 42)
	if err != nil {
		t.Fatalf("JobExists: %v", err)
	}
	if !exists {
		t.Error("expected exact triple to exist")
	}

	// Any one field differing means a distinct job.
	for name, triple := range map[string][3]any{
		"different title":   {"Rust Developer", "Acme", int64(42)},
		"different company": {"Go Developer", "Globex", int64(42)},
		"different message": {"Go Developer", "Acme", int64(43)},
	} {
		exists, err := s.JobExists(triple[0].(string), triple[1].(string), triple[2].(int64))
		if err != nil {
			t.Fatalf("JobExists (%s): %v", name, err)
		}
		if exists {
			t.Errorf("%s should not match", name)
		}
	}
}

func TestInsertJobUniqueConstraint(t *testing.T) {
	s := newTestStore(t)

	if err := s.InsertJob(testJob("Go Developer", "Acme", 42)); err != nil {
		t.Fatalf("first InsertJob: %v", err)
	}

	dup := testJob("Go Developer", "Acme", 42)
	dup.ID = "job-dup"
	if err := s.InsertJob(dup); err == nil {
		t.Error("expected unique constraint violation for duplicate triple")
	}

	n, err := s.CountJobs()
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("jobs = %d, want 1", n)
	}
}

func TestRunProgressLifecycle(t *testing.T) {
	s := newTestStore(t)

	rec := model.RunProgress{
		RunID:         "run-1",
		TotalChannels: 3,
		Status:        model.RunStatusRunning,
		StartedAt:     time.Now(),
	}
	if err := s.CreateRunProgress(rec); err != nil {
		t.Fatalf("CreateRunProgress: %v", err)
	}

	rec.ProcessedChannels = 2
	rec.CurrentChannel = "jobsfeed"
	rec.TotalJobsExtracted = 7
	rec.TotalMessagesProcessed = 31
	rec.Errors = []model.RunError{{Channel: "deadfeed", Message: "HTTP 404", At: time.Now()}}
	if err := s.UpdateRunProgress(rec); err != nil {
		t.Fatalf("UpdateRunProgress: %v", err)
	}

	got, err := s.GetRunProgress("run-1")
	if err != nil {
		t.Fatalf("GetRunProgress: %v", err)
	}
	if got == nil {
		t.Fatal("expected progress record")
	}
	if got.ProcessedChannels != 2 || got.TotalJobsExtracted != 7 || got.TotalMessagesProcessed != 31 {
		t.Errorf("counters = %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0].Channel != "deadfeed" {
		t.Errorf("errors = %+v", got.Errors)
	}
	if got.CompletedAt != nil {
		t.Error("completed_at should be nil while running")
	}

	now := time.Now()
	rec.Status = model.RunStatusCompleted
	rec.CompletedAt = &now
	if err := s.UpdateRunProgress(rec); err != nil {
		t.Fatalf("final UpdateRunProgress: %v", err)
	}

	got, _ = s.GetRunProgress("run-1")
	if got.Status != model.RunStatusCompleted || got.CompletedAt == nil {
		t.Errorf("terminal record = %+v", got)
	}
}

func TestGetRunProgressUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRunProgress("nope")
	if err != nil {
		t.Fatalf("GetRunProgress: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown run, got %+v", got)
	}
}
