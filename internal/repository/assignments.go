package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const assignmentColumns = `
	id,
	event_id,
	user_id,
	position_id,
	shift_id,
	to_char(shift_start, 'HH24:MI'),
	to_char(shift_end, 'HH24:MI'),
	status,
	notes,
	batch_id::text,
	assigned_by,
	created_at,
	updated_at,
	version
`

type assignmentScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row assignmentScanner) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	var (
		shiftID    sql.NullInt64
		batchID    sql.NullString
		assignedBy sql.NullInt64
	)

	dst := []any{
		&a.ID,
		&a.EventID,
		&a.UserID,
		&a.PositionID,
		&shiftID,
		&a.ShiftStart,
		&a.ShiftEnd,
		&a.Status,
		&a.Notes,
		&batchID,
		&assignedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if shiftID.Valid {
		id := shiftID.Int64
		a.ShiftID = &id
	}
	if batchID.Valid {
		id := batchID.String
		a.BatchID = &id
	}
	if assignedBy.Valid {
		id := assignedBy.Int64
		a.AssignedBy = &id
	}

	return a, nil
}

func collectAssignments(rows *sql.Rows) ([]*domain.Assignment, error) {
	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanAssignment(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetAssignmentsByEventID(ctx context.Context, eventID int64) ([]*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE event_id = $1 ORDER BY id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func (r *Repository) GetUserAssignmentsInEvent(ctx context.Context, eventID int64, userID int64) ([]*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE event_id = $1 AND user_id = $2 ORDER BY shift_start, id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssignments(rows)
}

// ListAssignments 按条件分页返回安排，同时返回满足条件的总数
func (r *Repository) ListAssignments(ctx context.Context, eventID int64, filter domain.AssignmentFilter) ([]*domain.Assignment, int, error) {
	conditions := []string{"event_id = $1"}
	args := []any{eventID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PositionID != nil {
		args = append(args, *filter.PositionID)
		conditions = append(conditions, fmt.Sprintf("position_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var total int
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ` + where + ` ORDER BY shift_start, position_id, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assignments, err := collectAssignments(rows)
	if err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *Repository) CountAssignmentsByStatus(ctx context.Context, eventID int64) (map[domain.AssignmentStatus]int, error) {
	query := `
		SELECT status, COUNT(*) FROM assignments
		WHERE event_id = $1
		GROUP BY status
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AssignmentStatus]int)
	for rows.Next() {
		var status domain.AssignmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

const insertAssignmentQuery = `
	INSERT INTO assignments (event_id, user_id, position_id, shift_id, shift_start, shift_end, status, notes, batch_id, assigned_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at, updated_at, version
`

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertAssignment(ctx context.Context, q rowQuerier, a *domain.Assignment) error {
	params := []any{
		a.EventID,
		a.UserID,
		a.PositionID,
		a.ShiftID,
		a.ShiftStart,
		a.ShiftEnd,
		a.Status,
		a.Notes,
		a.BatchID,
		a.AssignedBy,
	}
	dst := []any{&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.Version}
	return q.QueryRowContext(ctx, insertAssignmentQuery, params...).Scan(dst...)
}

func (r *Repository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return insertAssignment(ctx, r.dbpool, a)
}

// CreateAssignments 在一个事务中写入所有安排，任意一条失败则全部回滚
func (r *Repository) CreateAssignments(ctx context.Context, as []*domain.Assignment) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, a := range as {
		if err := insertAssignment(ctx, tx, a); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// UpdateAssignment 使用乐观锁更新安排，版本不匹配时返回 sql.ErrNoRows
func (r *Repository) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET
			user_id = $1,
			position_id = $2,
			shift_id = $3,
			shift_start = $4,
			shift_end = $5,
			status = $6,
			notes = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		a.UserID,
		a.PositionID,
		a.ShiftID,
		a.ShiftStart,
		a.ShiftEnd,
		a.Status,
		a.Notes,
		a.UpdatedAt,
		a.ID,
		a.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&a.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, id int64) error {
	query := `
		DELETE FROM assignments WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteEventAssignments 删除活动中所有未完成的安排
func (r *Repository) DeleteEventAssignments(ctx context.Context, eventID int64) (int64, error) {
	query := `
		DELETE FROM assignments WHERE event_id = $1 AND status <> 'COMPLETED'
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, eventID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
