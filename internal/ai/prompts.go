package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/job_extraction.md
var jobExtractionPromptRaw string

// JobExtractionTemplate is the parsed prompt template for job extraction.
// Parsed once at package init; reused on every Extract call.
var JobExtractionTemplate = template.Must(template.New("job_extraction").Parse(jobExtractionPromptRaw))

// extractionSystemPrompt is the system instruction for every extraction call.
const extractionSystemPrompt = "You are a precise structured data extractor for job postings. You always respond with a single JSON object and nothing else."
