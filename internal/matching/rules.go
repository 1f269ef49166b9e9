package matching

import (
	"math"
	"strings"

	"github.com/spigell/talent-matcher/internal/talent"
)

// Role categories used for alignment scoring.
const (
	CategoryFrontend  = "frontend"
	CategoryBackend   = "backend"
	CategoryFullstack = "fullstack"
	CategoryDevops    = "devops"
	CategoryMobile    = "mobile"
	CategoryData      = "data"
)

const (
	conflictPerSkill    = 4.0
	conflictCap         = 25.0
	pureMismatchPenalty = 15.0

	experienceBandBonus = 5.0

	requiredSkillWeight  = 3.0
	requiredSkillCap     = 15.0
	preferredSkillWeight = 1.0
	preferredSkillCap    = 5.0

	sameCategoryBonus        = 8.0
	fullstackBonus           = 5.0
	oppositeCategoryPenalty  = -5.0
	differentCategoryPenalty = -2.0

	positionSubstringBonus = 10.0
	seniorityWordWeight    = 3.0
	sharedWordWeight       = 1.0
	positionOverlapCap     = 8.0
)

// ConflictRule marks candidate skills as conflicting when a keyword in the
// job title signals a clearly different specialization.
type ConflictRule struct {
	TitleKeyword      string
	ConflictingSkills []string
}

type experienceBand struct {
	min float64
	max float64
}

type categoryDef struct {
	name     string
	keywords []string
}

// RuleTables holds the versioned business-rule configuration. The version
// feeds pair-score cache keys so tuning the rules invalidates stale scores.
type RuleTables struct {
	Version         string
	Conflicts       []ConflictRule
	ExperienceBands map[string]experienceBand
	Categories      []categoryDef
	SeniorityWords  map[string]bool
}

// DefaultRules returns the current hand-tuned rule tables.
func DefaultRules() *RuleTables {
	frontendSkills := []string{"react", "vue", "angular", "css", "html", "jquery", "sass", "figma"}

	return &RuleTables{
		Version: "v2",
		Conflicts: []ConflictRule{
			{TitleKeyword: "backend", ConflictingSkills: frontendSkills},
			{TitleKeyword: "python", ConflictingSkills: frontendSkills},
			{TitleKeyword: "java", ConflictingSkills: frontendSkills},
			{TitleKeyword: "golang", ConflictingSkills: frontendSkills},
			{TitleKeyword: "go", ConflictingSkills: frontendSkills},
			{TitleKeyword: "node", ConflictingSkills: frontendSkills},
			{TitleKeyword: "devops", ConflictingSkills: append([]string{"photoshop", "illustrator"}, frontendSkills...)},
			{TitleKeyword: "sre", ConflictingSkills: frontendSkills},
		},
		ExperienceBands: map[string]experienceBand{
			"entry":     {min: 0, max: 2},
			"junior":    {min: 1, max: 3},
			"mid":       {min: 2, max: 6},
			"senior":    {min: 5, max: math.Inf(1)},
			"lead":      {min: 7, max: math.Inf(1)},
			"principal": {min: 10, max: math.Inf(1)},
		},
		// Order matters: compound categories first so "fullstack" is not
		// swallowed by its "front"/"back" substrings, mobile before
		// frontend so "react native" does not classify as frontend.
		Categories: []categoryDef{
			{name: CategoryFullstack, keywords: []string{"fullstack", "full-stack", "full stack"}},
			{name: CategoryDevops, keywords: []string{"devops", "sre", "site reliability", "infrastructure", "platform engineer", "cloud engineer"}},
			{name: CategoryMobile, keywords: []string{"mobile", "ios", "android", "flutter", "react native"}},
			{name: CategoryData, keywords: []string{"data", "machine learning", "ml engineer", "analytics", "etl"}},
			{name: CategoryFrontend, keywords: []string{"frontend", "front-end", "front end", "react", "vue", "angular", "ui developer"}},
			{name: CategoryBackend, keywords: []string{"backend", "back-end", "back end", "api", "server", "golang", "python", "java", "node"}},
		},
		SeniorityWords: map[string]bool{
			"senior":    true,
			"lead":      true,
			"principal": true,
			"developer": true,
			"engineer":  true,
			"manager":   true,
		},
	}
}

// Breakdown reports each adjustment applied on top of the base score.
type Breakdown struct {
	Base                float64
	ConflictPenalty     float64
	ExperienceBonus     float64
	RequiredSkillBonus  float64
	PreferredSkillBonus float64
	CategoryAdjustment  float64
	PositionRelevance   float64
	Final               float64
}

// Adjuster applies deterministic business-rule adjustments to a base
// similarity score. It is a pure function of the two input records: no
// randomness, ties between identical candidates are expected.
type Adjuster struct {
	rules *RuleTables
}

// NewAdjuster creates an adjuster over the given rule tables, defaulting
// to DefaultRules when nil.
func NewAdjuster(rules *RuleTables) *Adjuster {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Adjuster{rules: rules}
}

// Version tags the active rule set for score cache invalidation.
func (a *Adjuster) Version() string { return a.rules.Version }

// Adjust applies all rule adjustments additively and clamps the result to
// [0, 100], rounded to 2 decimals.
func (a *Adjuster) Adjust(base float64, candidate *talent.CandidateRecord, job *talent.JobRecord) Breakdown {
	b := Breakdown{Base: base}
	if candidate == nil || job == nil {
		b.Final = clampScore(base)
		return b
	}

	required, preferred := SplitRequirements(job.Requirements)

	b.ConflictPenalty = a.conflictPenalty(candidate, job)
	b.ExperienceBonus = a.experienceBonus(candidate, job)
	b.RequiredSkillBonus = skillBonus(candidate.Skills, required, requiredSkillWeight, requiredSkillCap)
	b.PreferredSkillBonus = skillBonus(candidate.Skills, preferred, preferredSkillWeight, preferredSkillCap)
	b.CategoryAdjustment = a.categoryAlignment(candidate.CurrentPosition, job.Title)
	b.PositionRelevance = a.positionRelevance(candidate.CurrentPosition, job.Title)

	b.Final = clampScore(base - b.ConflictPenalty + b.ExperienceBonus +
		b.RequiredSkillBonus + b.PreferredSkillBonus +
		b.CategoryAdjustment + b.PositionRelevance)

	return b
}

// conflictPenalty scales with the number of candidate skills conflicting
// with the specialization the job title signals. When several title
// keywords fire, their conflict sets are unioned so a skill is only
// charged once.
func (a *Adjuster) conflictPenalty(candidate *talent.CandidateRecord, job *talent.JobRecord) float64 {
	words := titleWords(job.Title)

	conflicting := make(map[string]bool)
	for _, rule := range a.rules.Conflicts {
		if !words[rule.TitleKeyword] {
			continue
		}
		for _, skill := range rule.ConflictingSkills {
			conflicting[skill] = true
		}
	}

	if len(conflicting) == 0 {
		return 0
	}

	count := 0
	for _, skill := range candidate.Skills {
		if conflicting[strings.ToLower(strings.TrimSpace(skill))] {
			count++
		}
	}

	penalty := math.Min(conflictCap, float64(count)*conflictPerSkill)

	// A purely frontend candidate against a purely backend or devops
	// title is a category mismatch beyond individual skills.
	positionCategory := a.classify(candidate.CurrentPosition)
	titleCategory := a.classify(job.Title)
	if positionCategory == CategoryFrontend && (titleCategory == CategoryBackend || titleCategory == CategoryDevops) {
		penalty += pureMismatchPenalty
	}

	return penalty
}

func (a *Adjuster) experienceBonus(candidate *talent.CandidateRecord, job *talent.JobRecord) float64 {
	if candidate.ExperienceYears == nil {
		return 0
	}

	band, ok := a.rules.ExperienceBands[strings.ToLower(strings.TrimSpace(job.ExperienceLevel))]
	if !ok {
		return 0
	}

	years := *candidate.ExperienceYears
	if years >= band.min && years <= band.max {
		return experienceBandBonus
	}
	return 0
}

func skillBonus(skills []string, segment string, weight, limit float64) float64 {
	segment = strings.ToLower(segment)
	if segment == "" {
		return 0
	}

	count := 0
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill != "" && strings.Contains(segment, skill) {
			count++
		}
	}

	return math.Min(limit, float64(count)*weight)
}

// classify assigns a role category to a position or title, or "" when no
// category keyword matches. Category order resolves overlapping keywords.
func (a *Adjuster) classify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	for _, category := range a.rules.Categories {
		for _, keyword := range category.keywords {
			if strings.Contains(text, keyword) {
				return category.name
			}
		}
	}
	return ""
}

func (a *Adjuster) categoryAlignment(position, title string) float64 {
	positionCategory := a.classify(position)
	titleCategory := a.classify(title)

	switch {
	case positionCategory == "" || titleCategory == "":
		return 0
	case positionCategory == titleCategory:
		return sameCategoryBonus
	case positionCategory == CategoryFullstack || titleCategory == CategoryFullstack:
		return fullstackBonus
	case (positionCategory == CategoryFrontend && titleCategory == CategoryBackend) ||
		(positionCategory == CategoryBackend && titleCategory == CategoryFrontend):
		return oppositeCategoryPenalty
	default:
		return differentCategoryPenalty
	}
}

func (a *Adjuster) positionRelevance(position, title string) float64 {
	position = strings.ToLower(strings.TrimSpace(position))
	title = strings.ToLower(strings.TrimSpace(title))
	if position == "" || title == "" {
		return 0
	}

	if strings.Contains(position, title) || strings.Contains(title, position) {
		return positionSubstringBonus
	}

	titleSet := make(map[string]bool)
	for _, word := range strings.Fields(title) {
		titleSet[word] = true
	}

	overlap := 0.0
	seen := make(map[string]bool)
	for _, word := range strings.Fields(position) {
		if !titleSet[word] || seen[word] {
			continue
		}
		seen[word] = true
		if a.rules.SeniorityWords[word] {
			overlap += seniorityWordWeight
		} else {
			overlap += sharedWordWeight
		}
	}

	return math.Min(positionOverlapCap, overlap)
}

func clampScore(score float64) float64 {
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}
