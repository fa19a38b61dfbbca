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

// AlertStore reads and writes alert subscriptions with their filter criteria.
type AlertStore struct {
	DB    *sql.DB
	Clock clock.Clock
}

const alertColumns = `a.id, a.email, a.location, a.experience, a.desired_salary, a.min_salary, a.max_salary,
a.active, a.created_at, a.updated_at, u.id, u.email, u.name, c.id, c.name`

// FindActiveAlertsWithCriteria returns every active alert with subscriber,
// category and skill filters fully loaded.
func (s *AlertStore) FindActiveAlertsWithCriteria(ctx context.Context) ([]*domain.AlertSubscription, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+alertColumns+`
FROM alerts a
JOIN subscribers u ON u.id = a.subscriber_id
LEFT JOIN categories c ON c.id = a.category_id
WHERE a.active = 1
ORDER BY a.id;`)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachSkills(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// FindAlertWithCriteria loads one alert regardless of active state, or nil
// when it does not exist.
func (s *AlertStore) FindAlertWithCriteria(ctx context.Context, id int64) (*domain.AlertSubscription, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+alertColumns+`
FROM alerts a
JOIN subscribers u ON u.id = a.subscriber_id
LEFT JOIN categories c ON c.id = a.category_id
WHERE a.id = ?;`, id)
	if err != nil {
		return nil, fmt.Errorf("query alert %d: %w", id, err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, nil
	}
	if err := s.attachSkills(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts[0], nil
}

// FindActiveAlertBySubscriber returns the subscriber's active alert with
// criteria loaded, or nil when none exists. Subscribers normally hold one
// active alert; when several exist the newest wins.
func (s *AlertStore) FindActiveAlertBySubscriber(ctx context.Context, subscriberID int64) (*domain.AlertSubscription, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+alertColumns+`
FROM alerts a
JOIN subscribers u ON u.id = a.subscriber_id
LEFT JOIN categories c ON c.id = a.category_id
WHERE a.subscriber_id = ? AND a.active = 1
ORDER BY a.id DESC
LIMIT 1;`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query alert for subscriber %d: %w", subscriberID, err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, nil
	}
	if err := s.attachSkills(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts[0], nil
}

type AlertInsert struct {
	SubscriberID  int64
	Email         string
	Location      string
	Experience    string
	CategoryID    *int64
	DesiredSalary *float64
	MinSalary     *float64
	MaxSalary     *float64
	SkillIDs      []int64
	Active        bool
}

func (s *AlertStore) InsertAlert(ctx context.Context, a AlertInsert) (int64, error) {
	now := s.Clock.Now().UTC().Format(time.RFC3339)
	var category any
	if a.CategoryID != nil {
		category = *a.CategoryID
	}
	res, err := s.DB.ExecContext(ctx, `
INSERT INTO alerts (subscriber_id, email, location, experience, category_id, desired_salary, min_salary, max_salary, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		a.SubscriberID, a.Email, a.Location, a.Experience, category,
		nullFloat(a.DesiredSalary), nullFloat(a.MinSalary), nullFloat(a.MaxSalary),
		boolInt(a.Active), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, skillID := range a.SkillIDs {
		if _, err := s.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO alert_skill (alert_id, skill_id) VALUES (?, ?);`, id, skillID); err != nil {
			return 0, fmt.Errorf("link skill %d: %w", skillID, err)
		}
	}
	return id, nil
}

// SetActive flips the alert's active flag and reports whether the stored
// value changed.
func (s *AlertStore) SetActive(ctx context.Context, id int64, active bool) (changed bool, err error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE alerts SET active = ?, updated_at = ? WHERE id = ? AND active != ?;`,
		boolInt(active), s.Clock.Now().UTC().Format(time.RFC3339), id, boolInt(active))
	if err != nil {
		return false, fmt.Errorf("set alert active: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpsertSubscriber resolves an email to a subscriber id, creating the row if
// needed and refreshing the display name when one is supplied.
func (s *AlertStore) UpsertSubscriber(ctx context.Context, email, name string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, fmt.Errorf("empty subscriber email")
	}
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO subscribers (email, name) VALUES (?, ?)
ON CONFLICT(email) DO UPDATE SET name = excluded.name WHERE excluded.name != '';`, email, name); err != nil {
		return 0, fmt.Errorf("upsert subscriber: %w", err)
	}
	var id int64
	if err := s.DB.QueryRowContext(ctx, `SELECT id FROM subscribers WHERE email = ?;`, email).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup subscriber %q: %w", email, err)
	}
	return id, nil
}

func scanAlerts(rows *sql.Rows) ([]*domain.AlertSubscription, error) {
	var out []*domain.AlertSubscription
	for rows.Next() {
		var (
			a                 domain.AlertSubscription
			active            int
			desired, min, max sql.NullFloat64
			createdStr        string
			updatedStr        string
			catID             sql.NullInt64
			catName           sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.Location, &a.Experience, &desired, &min, &max,
			&active, &createdStr, &updatedStr,
			&a.Subscriber.ID, &a.Subscriber.Email, &a.Subscriber.Name,
			&catID, &catName); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Active = active != 0
		if desired.Valid {
			v := desired.Float64
			a.DesiredSalary = &v
		}
		if min.Valid {
			v := min.Float64
			a.MinSalary = &v
		}
		if max.Valid {
			v := max.Float64
			a.MaxSalary = &v
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
		if catID.Valid {
			a.Category = &domain.Category{ID: catID.Int64, Name: catName.String}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *AlertStore) attachSkills(ctx context.Context, alerts []*domain.AlertSubscription) error {
	if len(alerts) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.AlertSubscription, len(alerts))
	args := make([]any, 0, len(alerts))
	for _, a := range alerts {
		byID[a.ID] = a
		args = append(args, a.ID)
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT als.alert_id, sk.id, sk.name
FROM alert_skill als
JOIN skills sk ON sk.id = als.skill_id
WHERE als.alert_id IN (`+placeholders(len(args))+`)
ORDER BY sk.id;`, args...)
	if err != nil {
		return fmt.Errorf("query alert skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alertID int64
		var sk domain.Skill
		if err := rows.Scan(&alertID, &sk.ID, &sk.Name); err != nil {
			return fmt.Errorf("scan alert skill: %w", err)
		}
		if a := byID[alertID]; a != nil {
			a.Skills = append(a.Skills, sk)
		}
	}
	return rows.Err()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
