package matching

import (
	"strings"

	"github.com/spigell/talent-matcher/internal/talent"
)

const (
	fallbackPrimaryWeight   = 50.0
	fallbackSecondaryWeight = 20.0
	fallbackBaseline        = 10.0
)

// KeywordScore computes the overlap-ratio substitute for the semantic base
// score, used whenever the embedding provider is unavailable or a call
// fails for a specific pair. The business-rule adjuster is applied on top
// of this base exactly as in the embedding path, so both paths compare.
//
// The fraction of candidate skills found verbatim in the job's primary
// text (title + required segment) contributes up to 50 points, the
// fraction found in secondary text (description + preferred segment) up
// to 20. A nonzero profile with no matches still earns a small baseline so
// non-matches do not all collapse to zero.
func KeywordScore(candidate *talent.CandidateRecord, job *talent.JobRecord) float64 {
	if candidate == nil || job == nil {
		return 0
	}

	skills := make([]string, 0, len(candidate.Skills))
	for _, skill := range candidate.Skills {
		if skill = strings.ToLower(strings.TrimSpace(skill)); skill != "" {
			skills = append(skills, skill)
		}
	}
	if len(skills) == 0 {
		return 0
	}

	required, preferred := SplitRequirements(job.Requirements)
	primary := strings.ToLower(job.Title + " " + required)
	secondary := strings.ToLower(job.Description + " " + preferred)

	primaryMatches := 0
	secondaryMatches := 0
	for _, skill := range skills {
		if strings.Contains(primary, skill) {
			primaryMatches++
		}
		if strings.Contains(secondary, skill) {
			secondaryMatches++
		}
	}

	total := float64(len(skills))
	score := fallbackPrimaryWeight*float64(primaryMatches)/total +
		fallbackSecondaryWeight*float64(secondaryMatches)/total

	if score == 0 {
		return fallbackBaseline
	}
	return score
}
