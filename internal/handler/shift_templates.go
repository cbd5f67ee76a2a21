package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

type builtinTemplate struct {
	Type   string                      `json:"type"`
	Shifts []domain.ShiftTemplateShift `json:"shifts"`
}

// GetAllShiftTemplates 同时返回内置模板和保存在数据库中的自定义模板
func (h *Handler) GetAllShiftTemplates(w http.ResponseWriter, r *http.Request) {
	stms, err := h.repository.GetAllShiftTemplates(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	builtin := make([]builtinTemplate, 0, 3)
	for _, name := range []string{utils.TemplateStandard, utils.TemplateExtended, utils.TemplateAllDay} {
		shifts, _ := utils.BuiltinShiftTemplate(name)
		builtin = append(builtin, builtinTemplate{Type: name, Shifts: shifts})
	}

	h.successResponse(w, r, "获取所有班次模板成功", struct {
		Builtin []builtinTemplate       `json:"builtin"`
		Custom  []*domain.ShiftTemplate `json:"custom"`
	}{
		Builtin: builtin,
		Custom:  stms,
	})
}

func (h *Handler) CreateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description"`
		Shifts      []struct {
			Name      string `json:"name" validate:"required,max=100"`
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
			IsAllDay  bool   `json:"isAllDay"`
		} `json:"shifts" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	stm := &domain.ShiftTemplate{
		Name:        req.Name,
		Description: req.Description,
		Shifts:      make([]domain.ShiftTemplateShift, 0, len(req.Shifts)),
	}
	for _, shift := range req.Shifts {
		stm.Shifts = append(stm.Shifts, domain.ShiftTemplateShift{
			Name:      shift.Name,
			StartTime: shift.StartTime,
			EndTime:   shift.EndTime,
			IsAllDay:  shift.IsAllDay,
		})
	}

	if err := utils.ValidateTemplateShifts(stm.Shifts); err != nil {
		h.domainError(w, r, domain.ErrInvalidTemplate.WithDetail("reason", err.Error()))
		return
	}

	if err := h.repository.CreateShiftTemplate(r.Context(), stm); err != nil {
		h.storeError(w, r, err, nil)
		return
	}

	h.createdResponse(w, r, "创建模板成功", stm)
}

func (h *Handler) GetShiftTemplate(w http.ResponseWriter, r *http.Request) {
	stm := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	h.successResponse(w, r, "获取模板成功", stm)
}

// UpdateShiftTemplate 只修改名称和描述，班次需要删除模板后重新创建
func (h *Handler) UpdateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	stm := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
		Description *string `json:"description"`
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
		stm.Name = *req.Name
	}
	if req.Description != nil {
		stm.Description = *req.Description
	}

	if err := h.repository.UpdateShiftTemplate(r.Context(), stm); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.successResponse(w, r, "更新模板成功", stm)
}

func (h *Handler) DeleteShiftTemplate(w http.ResponseWriter, r *http.Request) {
	stm := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	if err := h.repository.DeleteShiftTemplate(r.Context(), stm.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除模板成功", nil)
}
