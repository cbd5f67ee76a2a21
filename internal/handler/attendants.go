package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

func (h *Handler) GetEventAttendants(w http.ResponseWriter, r *http.Request) {
	attendants, err := h.repository.GetEventAttendants(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取人员名单成功", attendants)
}

func (h *Handler) AddEventAttendants(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireAttendantManager(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		UserIDs []int64 `json:"userIDs" validate:"required,min=1,dive,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	if err := h.repository.AddEventAttendants(r.Context(), event.ID, req.UserIDs); err != nil {
		h.storeError(w, r, err, nil)
		return
	}

	h.createdResponse(w, r, "添加人员成功", nil)
}

func (h *Handler) RemoveEventAttendant(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireAttendantManager(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	userID, ok := idParam(r, "userID")
	if !ok {
		h.domainError(w, r, domain.ErrNotAssociated)
		return
	}

	if err := h.repository.RemoveEventAttendant(r.Context(), event.ID, userID); err != nil {
		h.storeError(w, r, err, domain.ErrNotAssociated)
		return
	}

	h.successResponse(w, r, "移出人员成功", nil)
}

// SubmitAvailability 覆盖某个人在活动中的空闲时间，本人或者可以管理人员名单的人都可以提交
func (h *Handler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	rv := resolverFrom(r)

	userID, ok := idParam(r, "userID")
	if !ok {
		h.domainError(w, r, domain.ErrNotAssociated)
		return
	}
	if userID != rv.Actor().UserID {
		if _, err := rv.RequireAttendantManager(r.Context(), event.ID); err != nil {
			h.domainError(w, r, err)
			return
		}
	}

	var req struct {
		Availability []domain.AvailabilityWindow `json:"availability"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := utils.ValidateAvailability(req.Availability); err != nil {
		h.validationError(w, r, err)
		return
	}

	isAttendant, err := h.repository.IsEventAttendant(r.Context(), event.ID, userID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !isAttendant {
		h.domainError(w, r, domain.ErrNotAssociated.WithDetail("userID", userID))
		return
	}

	if req.Availability == nil {
		req.Availability = make([]domain.AvailabilityWindow, 0)
	}
	if err := h.repository.ReplaceAvailability(r.Context(), event.ID, userID, req.Availability); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.domainError(w, r, domain.ErrNotAssociated)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "提交空闲时间成功", req.Availability)
}
