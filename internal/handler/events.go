package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

const dateLayout = "2006-01-02"

// GetMyEvents 返回调用者拥有权限的活动，全局管理员可以看到所有活动
func (h *Handler) GetMyEvents(w http.ResponseWriter, r *http.Request) {
	actor := resolverFrom(r).Actor()

	var (
		events []*domain.Event
		err    error
	)
	if actor.Role == domain.RoleAdmin {
		events, err = h.repository.GetAllEvents(r.Context())
	} else {
		events, err = h.repository.GetEventsForUser(r.Context(), actor.UserID)
	}
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	now := time.Now()
	status := domain.EventStatus(r.URL.Query().Get("status"))
	filtered := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		e.RefreshStatus(now)
		if status != "" && e.Status != status {
			continue
		}
		filtered = append(filtered, e)
	}

	h.successResponse(w, r, "获取活动列表成功", filtered)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name" validate:"required,max=255"`
		Description string  `json:"description"`
		Location    string  `json:"location" validate:"required,max=500"`
		StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
		EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
		StartTime   *string `json:"startTime" validate:"omitempty,datetime=15:04"`
		EndTime     *string `json:"endTime" validate:"omitempty,datetime=15:04"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	// 格式已经由 validator 检查过
	startDate, _ := time.Parse(dateLayout, req.StartDate)
	endDate, _ := time.Parse(dateLayout, req.EndDate)

	event := &domain.Event{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   startDate,
		EndDate:     endDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedBy:   resolverFrom(r).Actor().UserID,
	}
	if err := utils.ValidateEventWindow(event); err != nil {
		h.validationError(w, r, err)
		return
	}

	if err := h.repository.CreateEvent(r.Context(), event); err != nil {
		h.storeError(w, r, err, nil)
		return
	}
	event.RefreshStatus(time.Now())

	h.createdResponse(w, r, "创建活动成功", event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取活动成功", eventFrom(r))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireEventManager(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		Name        *string `json:"name" validate:"omitempty,max=255"`
		Description *string `json:"description"`
		Location    *string `json:"location" validate:"omitempty,max=500"`
		StartDate   *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
		EndDate     *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
		StartTime   *string `json:"startTime" validate:"omitempty,datetime=15:04"`
		EndTime     *string `json:"endTime" validate:"omitempty,datetime=15:04"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.StartDate != nil {
		event.StartDate, _ = time.Parse(dateLayout, *req.StartDate)
	}
	if req.EndDate != nil {
		event.EndDate, _ = time.Parse(dateLayout, *req.EndDate)
	}
	if req.StartTime != nil {
		event.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = req.EndTime
	}
	if err := utils.ValidateEventWindow(event); err != nil {
		h.validationError(w, r, err)
		return
	}

	if err := h.repository.UpdateEvent(r.Context(), event); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}
	event.RefreshStatus(time.Now())

	h.successResponse(w, r, "更新活动成功", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireOwner(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	if err := h.repository.DeleteEvent(r.Context(), event.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除活动成功", nil)
}

type Capabilities struct {
	CanManageEvent       bool `json:"canManageEvent"`
	CanDeleteEvent       bool `json:"canDeleteEvent"`
	CanManagePermissions bool `json:"canManagePermissions"`
	CanManageAttendants  bool `json:"canManageAttendants"`
}

// GetMyPermission 返回调用者在活动中的权限以及由此推导出的能力
func (h *Handler) GetMyPermission(w http.ResponseWriter, r *http.Request) {
	perm, err := resolverFrom(r).Permission(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if perm == nil {
		h.domainError(w, r, domain.ErrAccessDenied)
		return
	}

	h.successResponse(w, r, "获取权限成功", struct {
		Permission   *domain.EventPermission `json:"permission"`
		Capabilities Capabilities            `json:"capabilities"`
	}{
		Permission: perm,
		Capabilities: Capabilities{
			CanManageEvent:       access.CanManageEvent(perm),
			CanDeleteEvent:       access.CanDeleteEvent(perm),
			CanManagePermissions: access.CanManagePermissions(perm),
			CanManageAttendants:  access.CanManageAttendants(perm),
		},
	})
}

// loadPermission 读取属于当前活动的权限记录
func (h *Handler) loadPermission(r *http.Request) (*domain.EventPermission, error) {
	permissionID, ok := idParam(r, "permissionID")
	if !ok {
		return nil, domain.ErrPermissionNotFound
	}

	perm, err := h.repository.GetEventPermissionByID(r.Context(), permissionID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrPermissionNotFound
		default:
			return nil, err
		}
	}
	if perm.EventID != eventFrom(r).ID {
		return nil, domain.ErrPermissionNotFound
	}
	return perm, nil
}
