package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/extract_jobs.md
var extractJobsPromptRaw string

//go:embed prompts/cold_email.md
var coldEmailPromptRaw string

// ExtractJobsTemplate asks the model for a JSON array of postings.
var ExtractJobsTemplate = template.Must(template.New("extract_jobs").Parse(extractJobsPromptRaw))

// ColdEmailTemplate asks the model for a ready-to-send outreach email.
var ColdEmailTemplate = template.Must(template.New("cold_email").Parse(coldEmailPromptRaw))
