package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/assignment"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

// constraintErrors 将数据库约束名映射为业务错误
var constraintErrors = map[string]*domain.Error{
	"users_username_key":                     domain.ErrDuplicateUsername,
	"users_email_key":                        domain.ErrDuplicateEmail,
	"events_created_by_fkey":                 domain.ErrUserHasEvents,
	"event_permissions_event_id_user_id_key": domain.ErrDuplicatePermission,
	"event_permissions_user_id_fkey":         domain.ErrUserNotFound,
	"event_attendants_pkey":                  domain.ErrDuplicateAttendant,
	"event_attendants_user_id_fkey":          domain.ErrUserNotFound,
	"positions_event_id_position_number_key": domain.ErrDuplicatePosition,
	"positions_overseer_id_fkey":             domain.ErrUserNotFound,
	"positions_keyman_id_fkey":               domain.ErrUserNotFound,
	"shift_templates_name_key":               domain.ErrDuplicateTemplate,
	assignment.AssignmentOverlapConstraint:   domain.ErrConflictingAssignment,
}

// storeError 处理存储层返回的错误，sql.ErrNoRows 转换为 notFound
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFound *domain.Error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		domainErr, ok := constraintErrors[pgErr.ConstraintName]
		if !ok {
			h.internalServerError(w, r, err)
			return
		}
		h.domainError(w, r, domainErr)
	case errors.Is(err, sql.ErrNoRows) && notFound != nil:
		h.domainError(w, r, notFound)
	default:
		h.domainError(w, r, err)
	}
}
