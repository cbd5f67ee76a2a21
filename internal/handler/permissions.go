package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

func (h *Handler) GetEventPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.repository.GetEventPermissions(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取权限列表成功", perms)
}

func (h *Handler) GrantEventPermission(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	rv := resolverFrom(r)
	if _, err := rv.RequireOwner(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		UserID    int64    `json:"userID" validate:"required,gt=0"`
		Role      string   `json:"role" validate:"required,oneof=OWNER MANAGER OVERSEER KEYMAN VIEWER"`
		ScopeType *string  `json:"scopeType" validate:"omitempty,oneof=DEPARTMENT STATION_RANGE POSITION"`
		ScopeIDs  []string `json:"scopeIDs"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	var scopeType *domain.ScopeType
	if req.ScopeType != nil {
		st := domain.ScopeType(*req.ScopeType)
		scopeType = &st
	}
	if err := utils.ValidatePermissionScope(scopeType, req.ScopeIDs); err != nil {
		h.domainError(w, r, err)
		return
	}

	if _, err := h.repository.GetUserByID(r.Context(), req.UserID); err != nil {
		h.storeError(w, r, err, domain.ErrUserNotFound)
		return
	}

	grantedBy := rv.Actor().UserID
	perm := &domain.EventPermission{
		EventID:   event.ID,
		UserID:    req.UserID,
		Role:      domain.EventRole(req.Role),
		ScopeType: scopeType,
		ScopeIDs:  req.ScopeIDs,
		GrantedBy: &grantedBy,
	}
	if perm.ScopeIDs == nil {
		perm.ScopeIDs = make([]string, 0)
	}

	if err := h.repository.CreateEventPermission(r.Context(), perm); err != nil {
		h.storeError(w, r, err, nil)
		return
	}

	h.createdResponse(w, r, "授予权限成功", perm)
}

// UpdateEventPermission 修改角色或范围。scopeType 为空字符串表示取消范围限制
func (h *Handler) UpdateEventPermission(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireOwner(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	perm, err := h.loadPermission(r)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		Role      *string  `json:"role" validate:"omitempty,oneof=OWNER MANAGER OVERSEER KEYMAN VIEWER"`
		ScopeType *string  `json:"scopeType" validate:"omitempty,oneof=DEPARTMENT STATION_RANGE POSITION"`
		ScopeIDs  []string `json:"scopeIDs"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	if req.Role != nil {
		perm.Role = domain.EventRole(*req.Role)
	}
	if req.ScopeType != nil {
		if *req.ScopeType == "" {
			perm.ScopeType = nil
			perm.ScopeIDs = make([]string, 0)
		} else {
			st := domain.ScopeType(*req.ScopeType)
			perm.ScopeType = &st
		}
	}
	if req.ScopeIDs != nil {
		perm.ScopeIDs = req.ScopeIDs
	}
	if err := utils.ValidatePermissionScope(perm.ScopeType, perm.ScopeIDs); err != nil {
		h.domainError(w, r, err)
		return
	}

	if err := h.repository.UpdateEventPermission(r.Context(), perm); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.successResponse(w, r, "修改权限成功", perm)
}

func (h *Handler) RevokeEventPermission(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireOwner(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	perm, err := h.loadPermission(r)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	if err := h.repository.DeleteEventPermission(r.Context(), event.ID, perm.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.domainError(w, r, domain.ErrPermissionNotFound)
		default:
			h.storeError(w, r, err, nil)
		}
		return
	}

	h.successResponse(w, r, "撤销权限成功", nil)
}
