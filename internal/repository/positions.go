package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const positionColumns = `
	p.id,
	p.event_id,
	p.position_number,
	p.name,
	p.department,
	p.description,
	p.is_active,
	p.overseer_id,
	p.keyman_id,
	p.created_at,
	p.version,
	s.id,
	s.name,
	to_char(s.start_time, 'HH24:MI'),
	to_char(s.end_time, 'HH24:MI'),
	s.is_all_day,
	s.sequence
`

// collectPositions 将岗位与班次的 LEFT JOIN 结果合并，保持查询返回的岗位顺序
func collectPositions(rows *sql.Rows) ([]*domain.Position, error) {
	positions := make([]*domain.Position, 0)
	positionsMap := make(map[int64]*domain.Position)

	for rows.Next() {
		var row struct {
			ID             int64
			EventID        int64
			PositionNumber int32
			Name           string
			Department     string
			Description    string
			IsActive       bool
			OverseerID     sql.NullInt64
			KeymanID       sql.NullInt64
			CreatedAt      time.Time
			Version        int32

			ShiftID   sql.NullInt64
			ShiftName sql.NullString
			StartTime sql.NullString
			EndTime   sql.NullString
			IsAllDay  sql.NullBool
			Sequence  sql.NullInt32
		}

		dst := []any{
			&row.ID,
			&row.EventID,
			&row.PositionNumber,
			&row.Name,
			&row.Department,
			&row.Description,
			&row.IsActive,
			&row.OverseerID,
			&row.KeymanID,
			&row.CreatedAt,
			&row.Version,
			&row.ShiftID,
			&row.ShiftName,
			&row.StartTime,
			&row.EndTime,
			&row.IsAllDay,
			&row.Sequence,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		pos, exists := positionsMap[row.ID]
		if !exists {
			pos = &domain.Position{
				ID:             row.ID,
				EventID:        row.EventID,
				PositionNumber: row.PositionNumber,
				Name:           row.Name,
				Department:     row.Department,
				Description:    row.Description,
				IsActive:       row.IsActive,
				Shifts:         make([]domain.Shift, 0),
				CreatedAt:      row.CreatedAt,
				Version:        row.Version,
			}
			if row.OverseerID.Valid {
				id := row.OverseerID.Int64
				pos.OverseerID = &id
			}
			if row.KeymanID.Valid {
				id := row.KeymanID.Int64
				pos.KeymanID = &id
			}
			positionsMap[row.ID] = pos
			positions = append(positions, pos)
		}

		// 岗位还没有班次
		if !row.ShiftID.Valid {
			continue
		}

		shift := domain.Shift{
			ID:         row.ShiftID.Int64,
			PositionID: row.ID,
			Name:       row.ShiftName.String,
			IsAllDay:   row.IsAllDay.Bool,
			Sequence:   row.Sequence.Int32,
		}
		if row.StartTime.Valid {
			start := row.StartTime.String
			shift.StartTime = &start
		}
		if row.EndTime.Valid {
			end := row.EndTime.String
			shift.EndTime = &end
		}
		pos.Shifts = append(pos.Shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// GetPositionsByEventID 按岗位编号返回活动中的所有岗位及其班次
func (r *Repository) GetPositionsByEventID(ctx context.Context, eventID int64) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions p
		LEFT JOIN shifts s ON s.position_id = p.id
		WHERE p.event_id = $1
		ORDER BY p.position_number, p.id, s.sequence
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPositions(rows)
}

func (r *Repository) GetPositionByID(ctx context.Context, id int64) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions p
		LEFT JOIN shifts s ON s.position_id = p.id
		WHERE p.id = $1
		ORDER BY s.sequence
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions, err := collectPositions(rows)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, sql.ErrNoRows
	}

	return positions[0], nil
}

func (r *Repository) CreatePosition(ctx context.Context, pos *domain.Position) error {
	query := `
		INSERT INTO positions (event_id, position_number, name, department, description, is_active, overseer_id, keyman_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		pos.EventID,
		pos.PositionNumber,
		pos.Name,
		pos.Department,
		pos.Description,
		pos.IsActive,
		pos.OverseerID,
		pos.KeymanID,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&pos.ID, &pos.CreatedAt, &pos.Version); err != nil {
		return err
	}

	if pos.Shifts == nil {
		pos.Shifts = make([]domain.Shift, 0)
	}

	return nil
}

func (r *Repository) UpdatePosition(ctx context.Context, pos *domain.Position) error {
	query := `
		UPDATE positions
		SET
			position_number = $1,
			name = $2,
			department = $3,
			description = $4,
			is_active = $5,
			overseer_id = $6,
			keyman_id = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		pos.PositionNumber,
		pos.Name,
		pos.Department,
		pos.Description,
		pos.IsActive,
		pos.OverseerID,
		pos.KeymanID,
		pos.ID,
		pos.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&pos.Version); err != nil {
		return err
	}

	return nil
}

// AddShifts 在岗位已有班次之后追加班次，序号接着已有的最大序号递增。
// 违反全天班次规则时返回 domain.ErrShiftLayout。
func (r *Repository) AddShifts(ctx context.Context, positionID int64, shifts []domain.Shift) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 锁住岗位，避免并发追加时序号重复
	var locked int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM positions WHERE id = $1 FOR UPDATE`, positionID).Scan(&locked); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT is_all_day, sequence FROM shifts WHERE position_id = $1`, positionID)
	if err != nil {
		return err
	}
	existing := make([]domain.Shift, 0)
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.IsAllDay, &s.Sequence); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if !domain.AcceptsShifts(existing, shifts) {
		return domain.ErrShiftLayout
	}

	next := domain.NextSequence(existing)
	query := `
		INSERT INTO shifts (position_id, name, start_time, end_time, is_all_day, sequence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for i := range shifts {
		shifts[i].PositionID = positionID
		shifts[i].Sequence = next + int32(i)
		params := []any{positionID, shifts[i].Name, shifts[i].StartTime, shifts[i].EndTime, shifts[i].IsAllDay, shifts[i].Sequence}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&shifts[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// DeleteShift 删除岗位下的班次，班次不存在时返回 sql.ErrNoRows
func (r *Repository) DeleteShift(ctx context.Context, positionID int64, shiftID int64) error {
	query := `
		DELETE FROM shifts WHERE id = $1 AND position_id = $2
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, shiftID, positionID)
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
