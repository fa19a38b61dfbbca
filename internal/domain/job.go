package domain

import "time"

// Experience levels as stored on a posting.
const (
	LevelIntern  = "INTERN"
	LevelFresher = "FRESHER"
	LevelJunior  = "JUNIOR"
	LevelMiddle  = "MIDDLE"
	LevelSenior  = "SENIOR"
)

type Skill struct {
	ID   int64
	Name string
}

type Category struct {
	ID   int64
	Name string
}

// JobPosting is a read-only snapshot of a posting. The engine never mutates it.
type JobPosting struct {
	ID          int64
	Name        string
	CompanyName string
	Location    string
	Salary      float64
	Level       string // INTERN/FRESHER/JUNIOR/MIDDLE/SENIOR
	Category    *Category
	Skills      []Skill
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

func (j *JobPosting) SkillIDs() map[int64]bool {
	ids := make(map[int64]bool, len(j.Skills))
	for _, s := range j.Skills {
		ids[s.ID] = true
	}
	return ids
}

func (j *JobPosting) SkillNames() []string {
	names := make([]string, 0, len(j.Skills))
	for _, s := range j.Skills {
		names = append(names, s.Name)
	}
	return names
}

// JobSummary carries the fields an outgoing digest needs. Rendering happens
// in the notifier, not here.
type JobSummary struct {
	Name        string
	CompanyName string
	Location    string
	Salary      float64
	SkillNames  []string
}
