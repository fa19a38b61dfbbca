package domain

import "time"

type Subscriber struct {
	ID    int64
	Email string
	Name  string
}

// AlertSubscription is a subscriber's saved search. Every filter field is
// optional; an alert with no populated criteria matches every active job.
type AlertSubscription struct {
	ID         int64
	Subscriber Subscriber
	Email      string // fallback recipient when the subscriber has no account email
	Location   string
	Experience string
	Category   *Category

	// DesiredSalary is the old single-value filter, kept for alerts created
	// before the min/max range existed. The range wins when either bound is set.
	DesiredSalary *float64
	MinSalary     *float64
	MaxSalary     *float64

	Skills    []Skill
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *AlertSubscription) SkillIDs() map[int64]bool {
	ids := make(map[int64]bool, len(a.Skills))
	for _, s := range a.Skills {
		ids[s.ID] = true
	}
	return ids
}

// HasCriteria reports whether any filter field is populated. Unconstrained
// alerts are matched against every active job by policy.
func (a *AlertSubscription) HasCriteria() bool {
	return a.Location != "" ||
		a.Experience != "" ||
		a.Category != nil ||
		a.DesiredSalary != nil ||
		a.MinSalary != nil ||
		a.MaxSalary != nil ||
		len(a.Skills) > 0
}
