package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/domain"
)

// JobStore reads and writes postings. The engine treats results as immutable
// snapshots for the duration of one evaluation.
type JobStore struct {
	DB    *sql.DB
	Clock clock.Clock
}

const jobColumns = `j.id, j.name, j.company_name, j.location, j.salary, j.level, j.active, j.expires_at, j.created_at, c.id, c.name`

// FindActiveJobs returns every posting that is active and not expired, with
// skills attached.
func (s *JobStore) FindActiveJobs(ctx context.Context) ([]*domain.JobPosting, error) {
	now := s.Clock.Now().UTC().Format(time.RFC3339)
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs j
LEFT JOIN categories c ON c.id = j.category_id
WHERE j.active = 1 AND (j.expires_at IS NULL OR j.expires_at > ?)
ORDER BY j.id;`, now)
	if err != nil {
		return nil, fmt.Errorf("query active jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachSkills(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindJobWithSkills loads one posting with its full skill set, or nil when it
// does not exist. The fast path must not run on a partially loaded job.
func (s *JobStore) FindJobWithSkills(ctx context.Context, id int64) (*domain.JobPosting, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs j
LEFT JOIN categories c ON c.id = j.category_id
WHERE j.id = ?;`, id)
	if err != nil {
		return nil, fmt.Errorf("query job %d: %w", id, err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	if err := s.attachSkills(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs[0], nil
}

func (s *JobStore) FindJobsByIDs(ctx context.Context, ids []int64) ([]*domain.JobPosting, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs j
LEFT JOIN categories c ON c.id = j.category_id
WHERE j.id IN (`+placeholders(len(ids))+`);`, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs by ids: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachSkills(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

type JobInsert struct {
	Name        string
	CompanyName string
	Location    string
	Salary      float64
	Level       string
	CategoryID  *int64
	SkillIDs    []int64
	Active      bool
	ExpiresAt   *time.Time
}

func (s *JobStore) InsertJob(ctx context.Context, j JobInsert) (int64, error) {
	var expires any
	if j.ExpiresAt != nil {
		expires = j.ExpiresAt.UTC().Format(time.RFC3339)
	}
	var category any
	if j.CategoryID != nil {
		category = *j.CategoryID
	}
	res, err := s.DB.ExecContext(ctx, `
INSERT INTO jobs (name, company_name, location, salary, level, category_id, active, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		j.Name, j.CompanyName, j.Location, j.Salary, j.Level, category,
		boolInt(j.Active), expires, s.Clock.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, skillID := range j.SkillIDs {
		if _, err := s.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO job_skill (job_id, skill_id) VALUES (?, ?);`, id, skillID); err != nil {
			return 0, fmt.Errorf("link skill %d: %w", skillID, err)
		}
	}
	return id, nil
}

// UpsertSkill resolves a skill name to its stable id, creating it if needed.
func (s *JobStore) UpsertSkill(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty skill name")
	}
	if _, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO skills (name) VALUES (?);`, name); err != nil {
		return 0, fmt.Errorf("upsert skill: %w", err)
	}
	var id int64
	if err := s.DB.QueryRowContext(ctx, `SELECT id FROM skills WHERE name = ?;`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup skill %q: %w", name, err)
	}
	return id, nil
}

func (s *JobStore) UpsertCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty category name")
	}
	if _, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?);`, name); err != nil {
		return 0, fmt.Errorf("upsert category: %w", err)
	}
	var id int64
	if err := s.DB.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?;`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup category %q: %w", name, err)
	}
	return id, nil
}

func scanJobs(rows *sql.Rows) ([]*domain.JobPosting, error) {
	var out []*domain.JobPosting
	for rows.Next() {
		var (
			j          domain.JobPosting
			active     int
			expiresStr sql.NullString
			createdStr string
			catID      sql.NullInt64
			catName    sql.NullString
		)
		if err := rows.Scan(&j.ID, &j.Name, &j.CompanyName, &j.Location, &j.Salary, &j.Level,
			&active, &expiresStr, &createdStr, &catID, &catName); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Active = active != 0
		if expiresStr.Valid {
			if t, err := time.Parse(time.RFC3339, expiresStr.String); err == nil {
				j.ExpiresAt = &t
			}
		}
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		if catID.Valid {
			j.Category = &domain.Category{ID: catID.Int64, Name: catName.String}
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

func (s *JobStore) attachSkills(ctx context.Context, jobs []*domain.JobPosting) error {
	if len(jobs) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.JobPosting, len(jobs))
	args := make([]any, 0, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
		args = append(args, j.ID)
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT js.job_id, sk.id, sk.name
FROM job_skill js
JOIN skills sk ON sk.id = js.skill_id
WHERE js.job_id IN (`+placeholders(len(args))+`)
ORDER BY sk.id;`, args...)
	if err != nil {
		return fmt.Errorf("query job skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID int64
		var sk domain.Skill
		if err := rows.Scan(&jobID, &sk.ID, &sk.Name); err != nil {
			return fmt.Errorf("scan job skill: %w", err)
		}
		if j := byID[jobID]; j != nil {
			j.Skills = append(j.Skills, sk)
		}
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
