package talent

import (
	"encoding/json"
	"os"
)

// MatchLevel buckets a 0-100 relevance score into a coarse band.
type MatchLevel string

const (
	LevelLow    MatchLevel = "low"
	LevelMedium MatchLevel = "medium"
	LevelHigh   MatchLevel = "high"

	highThreshold   = 75.0
	mediumThreshold = 50.0
)

// LevelForScore classifies a 0-100 score: >=75 high, >=50 medium, else low.
func LevelForScore(score float64) MatchLevel {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// MatchScore is the result of scoring one candidate/job pair. SubjectID is
// the side being ranked, TargetID the side ranked against.
type MatchScore struct {
	SubjectID string     `json:"subject_id"`
	TargetID  string     `json:"target_id"`
	Score     float64    `json:"score"`
	Level     MatchLevel `json:"level"`
}

type MatchResults struct {
	Items []*MatchScore `json:"items"`
}

func (r *MatchResults) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// ReportByLevel groups subject identifiers by match level.
func (r *MatchResults) ReportByLevel() map[MatchLevel][]string {
	report := make(map[MatchLevel][]string)
	if r == nil {
		return report
	}
	for _, item := range r.Items {
		if item == nil {
			continue
		}
		report[item.Level] = append(report[item.Level], item.SubjectID)
	}
	return report
}

func (r *MatchResults) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "match_results_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
