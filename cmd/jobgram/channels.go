package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jobgram/jobgram/internal/model"
	"github.com/jobgram/jobgram/internal/store"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Inspect and sync scraped channels",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List channels in the store",
	RunE:  runChannelsList,
}

var channelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import channels and categories from the config file into the store",
	Long:  "Upserts the channels and the category tree declared in the config file. Scrape counters and last-scraped timestamps are preserved.",
	RunE:  runChannelsSync,
}

func init() {
	channelsCmd.AddCommand(channelsListCmd)
	channelsCmd.AddCommand(channelsSyncCmd)
	rootCmd.AddCommand(channelsCmd)
}

var (
	channelHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	channelDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

func runChannelsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	channels, err := st.ListChannels()
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	if len(channels) == 0 {
		fmt.Println("no channels in store — run `jobgram channels sync` first")
		return nil
	}

	fmt.Println(channelHeaderStyle.Render(fmt.Sprintf("%-24s %-20s %8s  %-8s %s", "CHANNEL", "CATEGORY", "JOBS", "ACTIVE", "LAST SCRAPED")))
	for _, ch := range channels {
		lastScraped := "never"
		if ch.LastScraped != nil {
			lastScraped = ch.LastScraped.Format("2006-01-02 15:04")
		}
		active := "yes"
		if !ch.IsActive || !ch.ScrapingEnabled {
			active = "no"
		}
		line := fmt.Sprintf("%-24s %-20s %8d  %-8s %s", "@"+ch.Username, ch.Category, ch.TotalJobsScraped, active, lastScraped)
		if active == "no" {
			line = channelDimStyle.Render(line)
		}
		fmt.Println(line)
	}

	total, err := st.CountJobs()
	if err != nil {
		return fmt.Errorf("counting jobs: %w", err)
	}
	fmt.Println(channelDimStyle.Render(fmt.Sprintf("%d channels, %d jobs in store", len(channels), total)))
	return nil
}

func runChannelsSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	for _, cc := range cfg.Categories {
		level := 0
		fullPath := cc.Path
		if cc.ParentPath != "" {
			level = 1
			fullPath = cc.ParentPath + "/" + cc.Path
		}
		cat := model.Category{
			ID:         slugify(cc.Path),
			Name:       cc.Name,
			Path:       cc.Path,
			FullPath:   fullPath,
			ParentPath: cc.ParentPath,
			Level:      level,
			Tags:       cc.Tags,
			Keywords:   cc.Keywords,
		}
		if err := st.UpsertCategory(cat); err != nil {
			return fmt.Errorf("syncing category %s: %w", cc.Name, err)
		}
	}

	for _, cc := range cfg.Channels {
		ch := model.Channel{
			ID:              uuid.New().String(), // ignored when the username already exists
			Username:        strings.TrimPrefix(cc.Username, "@"),
			Title:           cc.Title,
			ImageURL:        cc.ImageURL,
			Category:        cc.Category,
			IsActive:        cc.Active,
			ScrapingEnabled: cc.ScrapingEnabled,
		}
		if err := st.UpsertChannel(ch); err != nil {
			return fmt.Errorf("syncing channel %s: %w", cc.Username, err)
		}
	}

	logger.Info("sync complete", "channels", len(cfg.Channels), "categories", len(cfg.Categories))
	return nil
}

// slugify derives a stable category id from its path.
func slugify(path string) string {
	s := strings.ToLower(strings.TrimSpace(path))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
