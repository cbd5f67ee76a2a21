package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const eventColumns = `
	e.id,
	e.name,
	e.description,
	e.location,
	e.start_date,
	e.end_date,
	to_char(e.start_time, 'HH24:MI'),
	to_char(e.end_time, 'HH24:MI'),
	e.created_by,
	e.created_at,
	e.version
`

type eventScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row eventScanner) (*domain.Event, error) {
	event := &domain.Event{}
	var startTime, endTime sql.NullString

	dst := []any{
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Location,
		&event.StartDate,
		&event.EndDate,
		&startTime,
		&endTime,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if startTime.Valid {
		event.StartTime = &startTime.String
	}
	if endTime.Valid {
		event.EndTime = &endTime.String
	}

	return event, nil
}

// CreateEvent 创建活动，并在同一个事务中授予创建者 OWNER 权限
func (r *Repository) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO events (name, description, location, start_date, end_date, start_time, end_time, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`
	params := []any{
		event.Name,
		event.Description,
		event.Location,
		event.StartDate,
		event.EndDate,
		event.StartTime,
		event.EndTime,
		event.CreatedBy,
	}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&event.ID, &event.CreatedAt, &event.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO event_permissions (event_id, user_id, role, granted_by)
		VALUES ($1, $2, $3, $2)
	`
	if _, err := tx.ExecContext(ctx, query, event.ID, event.CreatedBy, domain.EventRoleOwner); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetEventByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanEvent(r.dbpool.QueryRowContext(ctx, query, id))
}

// GetAllEvents 返回所有活动，仅供全局管理员使用
func (r *Repository) GetAllEvents(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e ORDER BY e.start_date DESC, e.id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// GetEventsForUser 返回用户拥有任意权限的活动
func (r *Repository) GetEventsForUser(ctx context.Context, userID int64) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events e
		JOIN event_permissions ep ON ep.event_id = e.id
		WHERE ep.user_id = $1
		ORDER BY e.start_date DESC, e.id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET
			name = $1,
			description = $2,
			location = $3,
			start_date = $4,
			end_date = $5,
			start_time = $6,
			end_time = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		event.Name,
		event.Description,
		event.Location,
		event.StartDate,
		event.EndDate,
		event.StartTime,
		event.EndTime,
		event.ID,
		event.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&event.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteEvent(ctx context.Context, id int64) error {
	query := `
		DELETE FROM events WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
