package talent

// CandidateRecord is the attribute bag describing a candidate. The engine
// treats it as an immutable value: missing fields score low, they never fail.
type CandidateRecord struct {
	ID              string   `json:"id,omitempty" mapstructure:"id"`
	Skills          []string `json:"skills,omitempty" mapstructure:"skills"`
	CurrentPosition string   `json:"current_position,omitempty" mapstructure:"current_position"`
	CurrentCompany  string   `json:"current_company,omitempty" mapstructure:"current_company"`
	// ExperienceYears is nil when the years of experience are unknown.
	ExperienceYears *float64 `json:"experience_years,omitempty" mapstructure:"experience_years"`
	ExperienceLevel string   `json:"experience_level,omitempty" mapstructure:"experience_level"`
	Education       []string `json:"education,omitempty" mapstructure:"education"`
	ResumeText      string   `json:"resume_text,omitempty" mapstructure:"resume_text"`
	Location        string   `json:"location,omitempty" mapstructure:"location"`
}

type Candidates struct {
	Items []*CandidateRecord `json:"items" mapstructure:"items"`
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Candidates) FindByID(id string) *CandidateRecord {
	if c == nil {
		return nil
	}
	for _, candidate := range c.Items {
		if candidate != nil && candidate.ID == id {
			return candidate
		}
	}
	return nil
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, c.Len())
	if c == nil {
		return ids
	}
	for _, candidate := range c.Items {
		if candidate != nil {
			ids = append(ids, candidate.ID)
		}
	}
	return ids
}
