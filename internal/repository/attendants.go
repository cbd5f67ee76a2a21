package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

// GetEventAttendants 按加入名单的顺序返回人员名单及其空闲时间，自动排班平局时按这个顺序选人
func (r *Repository) GetEventAttendants(ctx context.Context, eventID int64) ([]*domain.EventAttendant, error) {
	query := `
		SELECT
			ea.user_id,
			u.full_name,
			u.role,
			ea.created_at,
			to_char(av.start_time, 'HH24:MI'),
			to_char(av.end_time, 'HH24:MI')
		FROM event_attendants ea
		JOIN users u ON u.id = ea.user_id
		LEFT JOIN attendant_availability av ON av.event_id = ea.event_id AND av.user_id = ea.user_id
		WHERE ea.event_id = $1
		ORDER BY ea.created_at, ea.user_id, av.start_time
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendants := make([]*domain.EventAttendant, 0)
	attendantsMap := make(map[int64]*domain.EventAttendant)

	for rows.Next() {
		var row struct {
			UserID    int64
			FullName  string
			Role      domain.Role
			CreatedAt time.Time

			Start sql.NullString
			End   sql.NullString
		}

		dst := []any{&row.UserID, &row.FullName, &row.Role, &row.CreatedAt, &row.Start, &row.End}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		att, exists := attendantsMap[row.UserID]
		if !exists {
			att = &domain.EventAttendant{
				EventID:      eventID,
				UserID:       row.UserID,
				FullName:     row.FullName,
				Role:         row.Role,
				Availability: make([]domain.AvailabilityWindow, 0),
				CreatedAt:    row.CreatedAt,
			}
			attendantsMap[row.UserID] = att
			attendants = append(attendants, att)
		}

		// 没有声明空闲时间
		if !row.Start.Valid || !row.End.Valid {
			continue
		}

		att.Availability = append(att.Availability, domain.AvailabilityWindow{Start: row.Start.String, End: row.End.String})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attendants, nil
}

func (r *Repository) IsEventAttendant(ctx context.Context, eventID int64, userID int64) (bool, error) {
	isExists := false

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM event_attendants WHERE event_id = $1 AND user_id = $2)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, eventID, userID).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

// AddEventAttendants 将多个用户一起加入名单，任意一个已在名单中时整体失败
func (r *Repository) AddEventAttendants(ctx context.Context, eventID int64, userIDs []int64) error {
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
		INSERT INTO event_attendants (event_id, user_id)
		VALUES ($1, $2)
	`
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, query, eventID, userID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// RemoveEventAttendant 将用户移出名单。
// 用户在活动中还有未拒绝的安排时返回 domain.ErrAttendantHasAssignments，不在名单中时返回 sql.ErrNoRows。
func (r *Repository) RemoveEventAttendant(ctx context.Context, eventID int64, userID int64) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var hasAssignments bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE event_id = $1 AND user_id = $2 AND status <> 'DECLINED'
		)
	`
	if err := tx.QueryRowContext(ctx, query, eventID, userID).Scan(&hasAssignments); err != nil {
		return err
	}
	if hasAssignments {
		return domain.ErrAttendantHasAssignments
	}

	query = `
		DELETE FROM event_attendants WHERE event_id = $1 AND user_id = $2
	`
	result, err := tx.ExecContext(ctx, query, eventID, userID)
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

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// ReplaceAvailability 用 windows 覆盖用户在活动中声明的空闲时间
func (r *Repository) ReplaceAvailability(ctx context.Context, eventID int64, userID int64, windows []domain.AvailabilityWindow) error {
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
		DELETE FROM attendant_availability WHERE event_id = $1 AND user_id = $2
	`
	if _, err := tx.ExecContext(ctx, query, eventID, userID); err != nil {
		return err
	}

	query = `
		INSERT INTO attendant_availability (event_id, user_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
	`
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, query, eventID, userID, w.Start, w.End); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
