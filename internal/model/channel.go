package model

import "time"

// Channel is a configured Telegram channel the pipeline reads from.
// Created and edited by the admin surface; the pipeline only bumps
// TotalJobsScraped and LastScraped after processing a channel.
type Channel struct {
	ID               string
	Username         string // handle without the leading @
	Title            string
	ImageURL         string
	Category         string // declared category hint passed to the extractor
	IsActive         bool
	ScrapingEnabled  bool
	TotalJobsScraped int64
	LastScraped      *time.Time // nil until the first completed scrape
}

// RawMessage is one fetched channel message. Ephemeral: it only survives
// as the raw post text inside a resulting Job record.
type RawMessage struct {
	ID        int64
	Text      string
	Timestamp time.Time
	ChatID    int64
	URL       string // canonical t.me link
}
