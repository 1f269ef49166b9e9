package talent

// JobRecord is the attribute bag describing an opening. Requirements mixes
// required and preferred items in free text; the composer splits them.
type JobRecord struct {
	ID              string `json:"id,omitempty" mapstructure:"id"`
	Title           string `json:"title,omitempty" mapstructure:"title"`
	Department      string `json:"department,omitempty" mapstructure:"department"`
	Description     string `json:"description,omitempty" mapstructure:"description"`
	Requirements    string `json:"requirements,omitempty" mapstructure:"requirements"`
	ExperienceLevel string `json:"experience_level,omitempty" mapstructure:"experience_level"`
	JobType         string `json:"job_type,omitempty" mapstructure:"job_type"`
	Location        string `json:"location,omitempty" mapstructure:"location"`
	SalaryFrom      int    `json:"salary_from,omitempty" mapstructure:"salary_from"`
	SalaryTo        int    `json:"salary_to,omitempty" mapstructure:"salary_to"`
}

type Jobs struct {
	Items []*JobRecord `json:"items" mapstructure:"items"`
}

func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *JobRecord {
	if j == nil {
		return nil
	}
	for _, job := range j.Items {
		if job != nil && job.ID == id {
			return job
		}
	}
	return nil
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, j.Len())
	if j == nil {
		return ids
	}
	for _, job := range j.Items {
		if job != nil {
			ids = append(ids, job.ID)
		}
	}
	return ids
}
