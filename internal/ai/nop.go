package ai

import (
	"context"

	"github.com/jobgram/jobgram/internal/model"
)

// NopExtractor is used when ai.enabled is false. It classifies every
// message as not a job posting, with no LLM calls.
type NopExtractor struct{}

// NewNopExtractor returns a NopExtractor.
func NewNopExtractor() *NopExtractor {
	return &NopExtractor{}
}

// Extract always reports "not a job".
func (n *NopExtractor) Extract(_ context.Context, _, _ string) (*model.JobCandidate, error) {
	return nil, nil
}
