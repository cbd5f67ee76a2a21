package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type shiftTemplateRow struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	Version     int32

	ShiftID   sql.NullInt64
	ShiftName sql.NullString
	StartTime sql.NullString
	EndTime   sql.NullString
	IsAllDay  sql.NullBool
}

func collectShiftTemplates(rows *sql.Rows) ([]*domain.ShiftTemplate, error) {
	templates := make([]*domain.ShiftTemplate, 0)
	templatesMap := make(map[int64]*domain.ShiftTemplate)

	for rows.Next() {
		var row shiftTemplateRow
		dst := []any{
			&row.ID,
			&row.Name,
			&row.Description,
			&row.CreatedAt,
			&row.Version,
			&row.ShiftID,
			&row.ShiftName,
			&row.StartTime,
			&row.EndTime,
			&row.IsAllDay,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		template, exists := templatesMap[row.ID]
		if !exists {
			// 说明此时是第一次查到这个 template，需要在 map 中初始化这个 template
			template = &domain.ShiftTemplate{
				ID:          row.ID,
				Name:        row.Name,
				Description: row.Description,
				Shifts:      make([]domain.ShiftTemplateShift, 0),
				CreatedAt:   row.CreatedAt,
				Version:     row.Version,
			}
			templatesMap[row.ID] = template
			templates = append(templates, template)
		}

		// 如果 shiftID 为空，则表示这个模板不存在任何的班次
		if !row.ShiftID.Valid {
			continue
		}

		template.Shifts = append(template.Shifts, domain.ShiftTemplateShift{
			ID:        row.ShiftID.Int64,
			Name:      row.ShiftName.String,
			StartTime: row.StartTime.String,
			EndTime:   row.EndTime.String,
			IsAllDay:  row.IsAllDay.Bool,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

const shiftTemplateQuery = `
	SELECT
		st.id,
		st.name,
		st.description,
		st.created_at,
		st.version,
		sts.id,
		sts.name,
		to_char(sts.start_time, 'HH24:MI'),
		to_char(sts.end_time, 'HH24:MI'),
		sts.is_all_day
	FROM shift_templates st
	LEFT JOIN shift_template_shifts sts ON st.id = sts.template_id
`

func (r *Repository) GetAllShiftTemplates(ctx context.Context) ([]*domain.ShiftTemplate, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, shiftTemplateQuery+` ORDER BY st.id, sts.start_time NULLS LAST, sts.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectShiftTemplates(rows)
}

func (r *Repository) GetShiftTemplateByID(ctx context.Context, id int64) (*domain.ShiftTemplate, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, shiftTemplateQuery+` WHERE st.id = $1 ORDER BY sts.start_time NULLS LAST, sts.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates, err := collectShiftTemplates(rows)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, sql.ErrNoRows
	}

	return templates[0], nil
}

func (r *Repository) CreateShiftTemplate(ctx context.Context, stm *domain.ShiftTemplate) error {
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
		INSERT INTO shift_templates (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, stm.Name, stm.Description).Scan(&stm.ID, &stm.CreatedAt, &stm.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO shift_template_shifts (template_id, name, start_time, end_time, is_all_day)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for i := range stm.Shifts {
		shift := &stm.Shifts[i]
		var start, end *string
		if !shift.IsAllDay {
			start, end = &shift.StartTime, &shift.EndTime
		}
		params := []any{stm.ID, shift.Name, start, end, shift.IsAllDay}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&shift.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateShiftTemplate(ctx context.Context, stm *domain.ShiftTemplate) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE shift_templates
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	params := []any{stm.Name, stm.Description, stm.ID, stm.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&stm.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteShiftTemplate(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		DELETE FROM shift_templates WHERE id = $1
	`

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
