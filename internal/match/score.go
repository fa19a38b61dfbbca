package match

import (
	"strings"
	"time"

	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/location"
)

// Weight table. These define observable ranking behavior; changing them
// changes which jobs land in a digest.
const (
	weightSkills   = 40.0
	weightLocation = 20.0
	weightCategory = 15.0
	weightSalary   = 15.0
	weightLevel    = 10.0
	freshnessBonus = 5.0

	freshnessWindow = 24 * time.Hour
)

// MaxScore is the ceiling of Score: all weights plus the freshness bonus.
const MaxScore = weightSkills + weightLocation + weightCategory + weightSalary + weightLevel + freshnessBonus

// Score rates how well a job fits an alert, in [0,100]. It ranks candidates
// that already passed IsMatch; each component is independent and additive.
func Score(job *domain.JobPosting, alert *domain.AlertSubscription, now time.Time) float64 {
	if job == nil || alert == nil {
		return 0
	}
	score := skillScore(job, alert)
	score += locationScore(job, alert)
	score += categoryScore(job, alert)
	score += salaryScore(job, alert)
	score += levelScore(job, alert)
	score += freshness(job, now)
	return score
}

// skillScore scales with the fraction of the alert's skills the job covers.
func skillScore(job *domain.JobPosting, alert *domain.AlertSubscription) float64 {
	if len(alert.Skills) == 0 || len(job.Skills) == 0 {
		return 0
	}
	want := alert.SkillIDs()
	matched := 0
	for _, s := range job.Skills {
		if want[s.ID] {
			matched++
		}
	}
	return weightSkills * float64(matched) / float64(len(alert.Skills))
}

func locationScore(job *domain.JobPosting, alert *domain.AlertSubscription) float64 {
	if strings.TrimSpace(alert.Location) == "" || strings.TrimSpace(job.Location) == "" {
		return 0
	}
	if location.Matches(alert.Location, job.Location) {
		return weightLocation
	}
	return 0
}

func categoryScore(job *domain.JobPosting, alert *domain.AlertSubscription) float64 {
	if alert.Category == nil || job.Category == nil {
		return 0
	}
	if alert.Category.ID == job.Category.ID {
		return weightCategory
	}
	return 0
}

func salaryScore(job *domain.JobPosting, alert *domain.AlertSubscription) float64 {
	if job.Salary <= 0 {
		return 0
	}
	if alert.MinSalary != nil || alert.MaxSalary != nil {
		if alert.MinSalary != nil && job.Salary < *alert.MinSalary {
			return 0
		}
		if alert.MaxSalary != nil && job.Salary > *alert.MaxSalary {
			return 0
		}
		return weightSalary
	}
	if alert.DesiredSalary != nil {
		if job.Salary >= *alert.DesiredSalary {
			return weightSalary
		}
		return 0
	}
	return 0
}

func levelScore(job *domain.JobPosting, alert *domain.AlertSubscription) float64 {
	want := strings.TrimSpace(alert.Experience)
	if want == "" || job.Level == "" {
		return 0
	}
	if strings.EqualFold(job.Level, want) {
		return weightLevel
	}
	return 0
}

func freshness(job *domain.JobPosting, now time.Time) float64 {
	if job.CreatedAt.IsZero() {
		return 0
	}
	if now.Sub(job.CreatedAt) <= freshnessWindow {
		return freshnessBonus
	}
	return 0
}
