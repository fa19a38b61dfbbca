// Package match decides whether a posting satisfies an alert and how well.
// Both entry points are pure: they read snapshots and touch no shared state.
package match

import (
	"strings"

	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/location"
)

// IsMatch reports whether the job satisfies every populated criterion of the
// alert. An inactive alert never matches; an alert with no criteria matches
// every active job. Each sub-check is vacuously true when its criterion is
// unset, and a malformed criterion counts as a non-match rather than failing
// the whole evaluation.
func IsMatch(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	if job == nil || alert == nil {
		return false
	}
	if !alert.Active || !job.Active {
		return false
	}
	if !alert.HasCriteria() {
		return true
	}

	return matchesSkills(job, alert) &&
		matchesLocation(job, alert) &&
		matchesCategory(job, alert) &&
		matchesSalary(job, alert) &&
		matchesLevel(job, alert)
}

// matchesSkills passes when the job shares at least one skill with the alert.
// Intersection, not superset: one common skill is enough.
func matchesSkills(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	if len(alert.Skills) == 0 {
		return true
	}
	if len(job.Skills) == 0 {
		return false
	}
	want := alert.SkillIDs()
	for _, s := range job.Skills {
		if want[s.ID] {
			return true
		}
	}
	return false
}

func matchesLocation(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	if strings.TrimSpace(alert.Location) == "" {
		return true
	}
	if strings.TrimSpace(job.Location) == "" {
		return false
	}
	return location.Matches(alert.Location, job.Location)
}

func matchesCategory(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	if alert.Category == nil {
		return true
	}
	if job.Category == nil {
		return false
	}
	return alert.Category.ID == job.Category.ID
}

// matchesSalary prefers the min/max range; the single desired value is the
// legacy fallback.
func matchesSalary(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	if alert.MinSalary != nil || alert.MaxSalary != nil {
		if alert.MinSalary != nil && job.Salary < *alert.MinSalary {
			return false
		}
		if alert.MaxSalary != nil && job.Salary > *alert.MaxSalary {
			return false
		}
		return true
	}
	if alert.DesiredSalary != nil {
		return job.Salary >= *alert.DesiredSalary
	}
	return true
}

func matchesLevel(job *domain.JobPosting, alert *domain.AlertSubscription) bool {
	want := strings.TrimSpace(alert.Experience)
	if want == "" {
		return true
	}
	return job.Level != "" && strings.EqualFold(job.Level, want)
}
