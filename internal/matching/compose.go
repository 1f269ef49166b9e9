// Package matching implements the candidate-job relevance scoring engine:
// text composition, similarity scoring with a keyword fallback, a layered
// business-rule adjuster and the orchestration surface.
package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/talent-matcher/internal/talent"
)

const (
	titleRepeat = 3

	primaryDescriptionLen = 500
	requiredSegmentLen    = 600
	preferredSegmentLen   = 400
	educationMaxLen       = 200
	resumeExcerptLen      = 1000
)

// preferredMarkers split a requirements blob into required and preferred
// segments. Everything before the first marker is required, everything
// after it is preferred.
var preferredMarkers = []string{
	"preferred qualifications",
	"nice to have",
	"nice-to-have",
	"preferred:",
	"preferred skills",
	"bonus points",
	"would be a plus",
}

// stackExpansions maps a job-title keyword to the common companion
// technologies for that stack. Expanding the title pulls semantically
// related terms into the embedding even when the description omits them.
// Ordered so composition stays deterministic.
var stackExpansions = []struct {
	keyword string
	terms   string
}{
	{"python", "django flask fastapi sqlalchemy"},
	{"java", "spring boot hibernate maven"},
	{"golang", "gin grpc goroutines microservices"},
	{"go", "gin grpc goroutines microservices"},
	{"node", "express nestjs typescript javascript"},
	{"ruby", "rails sidekiq"},
	{"php", "laravel symfony"},
	{"devops", "kubernetes docker terraform ansible aws pipelines"},
	{"frontend", "react vue angular html css javascript"},
	{"react", "redux typescript webpack"},
	{"mobile", "ios android swift kotlin"},
	{"data", "sql pandas spark etl warehouse"},
}

// SplitRequirements separates a free-text requirements blob into its
// required and preferred segments, length-capped to keep embeddings stable.
func SplitRequirements(requirements string) (required, preferred string) {
	text := strings.TrimSpace(requirements)
	if text == "" {
		return "", ""
	}

	lower := strings.ToLower(text)
	splitAt := -1
	markerLen := 0
	for _, marker := range preferredMarkers {
		idx := strings.Index(lower, marker)
		if idx == -1 {
			continue
		}
		if splitAt == -1 || idx < splitAt {
			splitAt = idx
			markerLen = len(marker)
		}
	}

	if splitAt == -1 {
		return truncateRunes(text, requiredSegmentLen), ""
	}

	required = strings.TrimSpace(text[:splitAt])
	preferred = strings.TrimSpace(strings.TrimLeft(text[splitAt+markerLen:], ":-. "))

	return truncateRunes(required, requiredSegmentLen), truncateRunes(preferred, preferredSegmentLen)
}

// ComposeJobText builds the canonical textual representation of a job.
// The title is repeated for embedding weight and expanded into its
// technology stack; description and requirements are split into primary
// and secondary segments. Pure and deterministic.
func ComposeJobText(job *talent.JobRecord) string {
	if job == nil {
		return ""
	}

	parts := make([]string, 0, 8)

	title := strings.TrimSpace(job.Title)
	if title != "" {
		repeated := strings.TrimSpace(strings.Repeat(title+" ", titleRepeat))
		parts = append(parts, "Job Title: "+repeated)

		if stack := expandTitleStack(title); stack != "" {
			parts = append(parts, "Technology Stack: "+stack)
		}
	}

	description := strings.TrimSpace(job.Description)
	if description != "" {
		runes := []rune(description)
		primary := strings.TrimSpace(string(runes[:min(len(runes), primaryDescriptionLen)]))
		parts = append(parts, "Description: "+primary)

		if len(runes) > primaryDescriptionLen {
			if remainder := strings.TrimSpace(string(runes[primaryDescriptionLen:])); remainder != "" {
				parts = append(parts, "Additional Details: "+remainder)
			}
		}
	}

	required, preferred := SplitRequirements(job.Requirements)
	if required != "" {
		parts = append(parts, "Required: "+required)
	}
	if preferred != "" {
		parts = append(parts, "Preferred: "+preferred)
	}

	if level := strings.TrimSpace(job.ExperienceLevel); level != "" {
		parts = append(parts, "Experience Level: "+level)
	}
	if department := strings.TrimSpace(job.Department); department != "" {
		parts = append(parts, "Department: "+department)
	}
	if jobType := strings.TrimSpace(job.JobType); jobType != "" {
		parts = append(parts, "Job Type: "+jobType)
	}

	return strings.Join(parts, " | ")
}

// ComposeCandidateText builds the canonical textual representation of a
// candidate. Pure and deterministic.
func ComposeCandidateText(candidate *talent.CandidateRecord) string {
	if candidate == nil {
		return ""
	}

	parts := make([]string, 0, 6)

	skills := joinSkills(candidate.Skills)
	if skills != "" {
		parts = append(parts, "Skills: "+skills)
	}

	if position := strings.TrimSpace(candidate.CurrentPosition); position != "" {
		parts = append(parts, "Current Position: "+position)
	}

	if candidate.ExperienceYears != nil && *candidate.ExperienceYears >= 0 {
		years := *candidate.ExperienceYears
		parts = append(parts, fmt.Sprintf("Experience: %g years, %s", years, experienceBandPhrase(years)))
	}

	if len(candidate.Education) > 0 {
		if education := strings.TrimSpace(candidate.Education[0]); education != "" && len([]rune(education)) <= educationMaxLen {
			parts = append(parts, "Education: "+education)
		}
	}

	if company := strings.TrimSpace(candidate.CurrentCompany); company != "" {
		parts = append(parts, "Current Company: "+company)
	}

	if resume := strings.TrimSpace(candidate.ResumeText); resume != "" {
		parts = append(parts, "Resume: "+truncateRunes(resume, resumeExcerptLen))
	}

	return strings.Join(parts, " | ")
}

// experienceBandPhrase maps years of experience to the phrasing used in
// composed candidate text.
func experienceBandPhrase(years float64) string {
	switch {
	case years < 2:
		return "entry level junior"
	case years < 5:
		return "mid level"
	case years < 8:
		return "senior level"
	default:
		return "senior experienced professional"
	}
}

func expandTitleStack(title string) string {
	words := titleWords(title)

	seen := make(map[string]bool)
	expansions := make([]string, 0, 2)
	for _, expansion := range stackExpansions {
		if !words[expansion.keyword] || seen[expansion.terms] {
			continue
		}
		seen[expansion.terms] = true
		expansions = append(expansions, expansion.terms)
	}

	return strings.Join(expansions, " ")
}

func titleWords(title string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		words[strings.Trim(word, ",./()-")] = true
	}
	return words
}

func joinSkills(skills []string) string {
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			cleaned = append(cleaned, skill)
		}
	}
	return strings.Join(cleaned, ", ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
