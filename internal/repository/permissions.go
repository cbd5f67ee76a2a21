package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

// permissionRow 对应 event_permissions LEFT JOIN event_permission_scopes 的一行
type permissionRow struct {
	ID        int64
	EventID   int64
	UserID    int64
	Role      domain.EventRole
	ScopeType sql.NullString
	GrantedBy sql.NullInt64
	CreatedAt time.Time
	Version   int32

	ScopeID sql.NullString
}

const permissionColumns = `
	ep.id,
	ep.event_id,
	ep.user_id,
	ep.role,
	ep.scope_type,
	ep.granted_by,
	ep.created_at,
	ep.version,
	eps.scope_id
`

// collectPermissions 把多行合并为权限列表，保持查询返回的顺序
func collectPermissions(rows *sql.Rows) ([]*domain.EventPermission, error) {
	perms := make([]*domain.EventPermission, 0)
	permsMap := make(map[int64]*domain.EventPermission)

	for rows.Next() {
		var row permissionRow
		dst := []any{
			&row.ID,
			&row.EventID,
			&row.UserID,
			&row.Role,
			&row.ScopeType,
			&row.GrantedBy,
			&row.CreatedAt,
			&row.Version,
			&row.ScopeID,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		perm, exists := permsMap[row.ID]
		if !exists {
			// 第一次遇到这条权限
			perm = &domain.EventPermission{
				ID:        row.ID,
				EventID:   row.EventID,
				UserID:    row.UserID,
				Role:      row.Role,
				ScopeIDs:  make([]string, 0),
				CreatedAt: row.CreatedAt,
				Version:   row.Version,
			}
			if row.ScopeType.Valid {
				scopeType := domain.ScopeType(row.ScopeType.String)
				perm.ScopeType = &scopeType
			}
			if row.GrantedBy.Valid {
				grantedBy := row.GrantedBy.Int64
				perm.GrantedBy = &grantedBy
			}
			permsMap[row.ID] = perm
			perms = append(perms, perm)
		}

		if row.ScopeID.Valid {
			perm.ScopeIDs = append(perm.ScopeIDs, row.ScopeID.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return perms, nil
}

// GetEventPermission 返回用户在活动中的权限，没有记录时返回 sql.ErrNoRows
func (r *Repository) GetEventPermission(ctx context.Context, eventID int64, userID int64) (*domain.EventPermission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM event_permissions ep
		LEFT JOIN event_permission_scopes eps ON ep.id = eps.permission_id
		WHERE ep.event_id = $1 AND ep.user_id = $2
		ORDER BY eps.scope_id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, sql.ErrNoRows
	}

	return perms[0], nil
}

func (r *Repository) GetEventPermissionByID(ctx context.Context, id int64) (*domain.EventPermission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM event_permissions ep
		LEFT JOIN event_permission_scopes eps ON ep.id = eps.permission_id
		WHERE ep.id = $1
		ORDER BY eps.scope_id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, sql.ErrNoRows
	}

	return perms[0], nil
}

func (r *Repository) GetEventPermissions(ctx context.Context, eventID int64) ([]*domain.EventPermission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM event_permissions ep
		LEFT JOIN event_permission_scopes eps ON ep.id = eps.permission_id
		WHERE ep.event_id = $1
		ORDER BY ep.id, eps.scope_id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPermissions(rows)
}

func insertScopes(ctx context.Context, tx *sql.Tx, permissionID int64, scopeIDs []string) error {
	query := `
		INSERT INTO event_permission_scopes (permission_id, scope_id)
		VALUES ($1, $2)
	`
	for _, scopeID := range scopeIDs {
		if _, err := tx.ExecContext(ctx, query, permissionID, scopeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CreateEventPermission(ctx context.Context, perm *domain.EventPermission) error {
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
		INSERT INTO event_permissions (event_id, user_id, role, scope_type, granted_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	params := []any{perm.EventID, perm.UserID, perm.Role, perm.ScopeType, perm.GrantedBy}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&perm.ID, &perm.CreatedAt, &perm.Version); err != nil {
		return err
	}

	if err := insertScopes(ctx, tx, perm.ID, perm.ScopeIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// lockOwners 锁住活动中所有 OWNER 权限并返回数量，保证并发修改时不会同时移除最后两个 OWNER
func lockOwners(ctx context.Context, tx *sql.Tx, eventID int64) (int, error) {
	query := `
		SELECT id FROM event_permissions
		WHERE event_id = $1 AND role = 'OWNER'
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, query, eventID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	return count, nil
}

func currentRole(ctx context.Context, tx *sql.Tx, permissionID int64) (domain.EventRole, error) {
	var role domain.EventRole
	query := `SELECT role FROM event_permissions WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, permissionID).Scan(&role); err != nil {
		return "", err
	}
	return role, nil
}

// UpdateEventPermission 修改角色和范围，降级最后一个 OWNER 时返回 domain.ErrLastOwner
func (r *Repository) UpdateEventPermission(ctx context.Context, perm *domain.EventPermission) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	owners, err := lockOwners(ctx, tx, perm.EventID)
	if err != nil {
		return err
	}
	role, err := currentRole(ctx, tx, perm.ID)
	if err != nil {
		return err
	}
	if domain.LeavesNoOwner(owners, role, &perm.Role) {
		return domain.ErrLastOwner
	}

	query := `
		UPDATE event_permissions
		SET
			role = $1,
			scope_type = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`
	params := []any{perm.Role, perm.ScopeType, perm.ID, perm.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&perm.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_permission_scopes WHERE permission_id = $1`, perm.ID); err != nil {
		return err
	}
	if err := insertScopes(ctx, tx, perm.ID, perm.ScopeIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// DeleteEventPermission 撤销权限，撤销最后一个 OWNER 时返回 domain.ErrLastOwner
func (r *Repository) DeleteEventPermission(ctx context.Context, eventID int64, id int64) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	owners, err := lockOwners(ctx, tx, eventID)
	if err != nil {
		return err
	}
	role, err := currentRole(ctx, tx, id)
	if err != nil {
		return err
	}
	if domain.LeavesNoOwner(owners, role, nil) {
		return domain.ErrLastOwner
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_permissions WHERE id = $1`, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
