package match_test

import (
	"testing"
	"time"

	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/match"
)

var evalTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestScore_AllComponents(t *testing.T) {
	job := activeJob()
	job.CreatedAt = evalTime.Add(-2 * time.Hour) // fresh
	alert := &domain.AlertSubscription{
		ID:         1,
		Active:     true,
		Location:   "Hanoi",
		Experience: "JUNIOR",
		Category:   &domain.Category{ID: 7},
		MinSalary:  f64(1000),
		MaxSalary:  f64(3000),
		Skills:     []domain.Skill{{ID: 1, Name: "Go"}, {ID: 2, Name: "SQL"}},
	}

	// 40 + 20 + 15 + 15 + 10 + 5
	if got := match.Score(job, alert, evalTime); got != 100 {
		t.Errorf("full match score = %v, want 100", got)
	}
}

func TestScore_PartialSkillFraction(t *testing.T) {
	job := activeJob()
	job.Skills = []domain.Skill{{ID: 2, Name: "SQL"}}
	job.CreatedAt = evalTime.Add(-48 * time.Hour)
	alert := &domain.AlertSubscription{
		ID:     1,
		Active: true,
		Skills: []domain.Skill{{ID: 1, Name: "Go"}, {ID: 2, Name: "SQL"}},
	}

	// One of two alert skills matched: 40 * 1/2.
	if got := match.Score(job, alert, evalTime); got != 20 {
		t.Errorf("skill sub-score = %v, want 20", got)
	}
	if !match.IsMatch(job, alert) {
		t.Error("one shared skill should still be a predicate match")
	}
}

func TestScore_Bounds(t *testing.T) {
	jobs := []*domain.JobPosting{
		activeJob(),
		{ID: 2, Active: true},
		{ID: 3, Active: true, Salary: -5, Location: "nowhere"},
	}
	alerts := []*domain.AlertSubscription{
		{ID: 1, Active: true},
		{ID: 2, Active: true, Location: "Hà Nội", DesiredSalary: f64(1)},
		{ID: 3, Active: true, Skills: []domain.Skill{{ID: 1}}, Experience: "JUNIOR"},
	}
	for _, j := range jobs {
		for _, a := range alerts {
			got := match.Score(j, a, evalTime)
			if got < 0 || got > match.MaxScore {
				t.Errorf("Score(job %d, alert %d) = %v, outside [0,%v]", j.ID, a.ID, got, match.MaxScore)
			}
		}
	}
}

func TestScore_MonotonicInMatchedComponents(t *testing.T) {
	alert := &domain.AlertSubscription{
		ID:        1,
		Active:    true,
		Location:  "Hà Nội",
		Category:  &domain.Category{ID: 7},
		MinSalary: f64(1000),
		Skills:    []domain.Skill{{ID: 1, Name: "Go"}},
	}

	weak := &domain.JobPosting{ID: 1, Active: true, Salary: 2000, CreatedAt: evalTime.Add(-72 * time.Hour)}
	prev := match.Score(weak, alert, evalTime)

	// Turn components on one at a time; the score must never decrease.
	steps := []func(j *domain.JobPosting){
		func(j *domain.JobPosting) { j.Skills = []domain.Skill{{ID: 1, Name: "Go"}} },
		func(j *domain.JobPosting) { j.Location = "Hanoi" },
		func(j *domain.JobPosting) { j.Category = &domain.Category{ID: 7} },
		func(j *domain.JobPosting) { j.CreatedAt = evalTime.Add(-1 * time.Hour) },
	}
	for i, step := range steps {
		step(weak)
		got := match.Score(weak, alert, evalTime)
		if got < prev {
			t.Errorf("step %d: score decreased from %v to %v", i, prev, got)
		}
		prev = got
	}
}

func TestScore_FreshnessWindow(t *testing.T) {
	alert := &domain.AlertSubscription{ID: 1, Active: true, Skills: []domain.Skill{{ID: 99}}}

	fresh := &domain.JobPosting{ID: 1, Active: true, CreatedAt: evalTime.Add(-23 * time.Hour)}
	stale := &domain.JobPosting{ID: 2, Active: true, CreatedAt: evalTime.Add(-25 * time.Hour)}

	if got := match.Score(fresh, alert, evalTime); got != 5 {
		t.Errorf("job inside 24h window scored %v, want 5", got)
	}
	if got := match.Score(stale, alert, evalTime); got != 0 {
		t.Errorf("job outside 24h window scored %v, want 0", got)
	}
}

func TestScore_ZeroSalaryNeverEarnsSalaryPoints(t *testing.T) {
	job := activeJob()
	job.Salary = 0
	alert := &domain.AlertSubscription{ID: 1, Active: true, MaxSalary: f64(5000)}
	job.CreatedAt = evalTime.Add(-48 * time.Hour)

	if got := match.Score(job, alert, evalTime); got != 0 {
		t.Errorf("zero salary scored %v salary points, want 0", got)
	}
}
