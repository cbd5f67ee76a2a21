package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

func (h *Handler) GetEventPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repository.GetPositionsByEventID(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	department := r.URL.Query().Get("department")
	filtered := make([]*domain.Position, 0, len(positions))
	for _, pos := range positions {
		if department != "" && pos.Department != department {
			continue
		}
		filtered = append(filtered, pos)
	}

	h.successResponse(w, r, "获取岗位列表成功", filtered)
}

type shiftRequest struct {
	Name      string  `json:"name" validate:"required,max=100"`
	StartTime *string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"endTime" validate:"omitempty,datetime=15:04"`
	IsAllDay  bool    `json:"isAllDay"`
}

// toShifts 将请求中的班次转换为岗位班次，并检查时间和全天班次规则
func toShifts(reqs []shiftRequest) ([]domain.Shift, error) {
	templateShifts := make([]domain.ShiftTemplateShift, len(reqs))
	for i, req := range reqs {
		templateShifts[i] = domain.ShiftTemplateShift{Name: req.Name, IsAllDay: req.IsAllDay}
		if !req.IsAllDay && req.StartTime != nil && req.EndTime != nil {
			templateShifts[i].StartTime = *req.StartTime
			templateShifts[i].EndTime = *req.EndTime
		}
	}
	if err := utils.ValidateTemplateShifts(templateShifts); err != nil {
		return nil, err
	}
	return utils.TemplateToShifts(templateShifts), nil
}

func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireAttendantManager(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		PositionNumber int32          `json:"positionNumber" validate:"required,gt=0"`
		Name           string         `json:"name" validate:"required,max=255"`
		Department     string         `json:"department" validate:"required,max=100"`
		Description    string         `json:"description"`
		OverseerID     *int64         `json:"overseerID" validate:"omitempty,gt=0"`
		KeymanID       *int64         `json:"keymanID" validate:"omitempty,gt=0"`
		Shifts         []shiftRequest `json:"shifts" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	var shifts []domain.Shift
	if len(req.Shifts) > 0 {
		var err error
		if shifts, err = toShifts(req.Shifts); err != nil {
			h.validationError(w, r, err)
			return
		}
	}

	pos := &domain.Position{
		EventID:        event.ID,
		PositionNumber: req.PositionNumber,
		Name:           req.Name,
		Department:     req.Department,
		Description:    req.Description,
		IsActive:       true,
		OverseerID:     req.OverseerID,
		KeymanID:       req.KeymanID,
	}
	if err := h.repository.CreatePosition(r.Context(), pos); err != nil {
		h.storeError(w, r, err, nil)
		return
	}

	if len(shifts) > 0 {
		if err := h.repository.AddShifts(r.Context(), pos.ID, shifts); err != nil {
			h.storeError(w, r, err, nil)
			return
		}
		pos.Shifts = shifts
	}

	h.createdResponse(w, r, "创建岗位成功", pos)
}

func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取岗位成功", positionFrom(r))
}

func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	pos := positionFrom(r)
	if _, err := resolverFrom(r).RequirePosition(r.Context(), pos); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		PositionNumber *int32  `json:"positionNumber" validate:"omitempty,gt=0"`
		Name           *string `json:"name" validate:"omitempty,max=255"`
		Department     *string `json:"department" validate:"omitempty,max=100"`
		Description    *string `json:"description"`
		IsActive       *bool   `json:"isActive"`
		OverseerID     *int64  `json:"overseerID" validate:"omitempty,gt=0"`
		KeymanID       *int64  `json:"keymanID" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	if req.PositionNumber != nil {
		pos.PositionNumber = *req.PositionNumber
	}
	if req.Name != nil {
		pos.Name = *req.Name
	}
	if req.Department != nil {
		pos.Department = *req.Department
	}
	if req.Description != nil {
		pos.Description = *req.Description
	}
	if req.IsActive != nil {
		pos.IsActive = *req.IsActive
	}
	if req.OverseerID != nil {
		pos.OverseerID = req.OverseerID
	}
	if req.KeymanID != nil {
		pos.KeymanID = req.KeymanID
	}

	if err := h.repository.UpdatePosition(r.Context(), pos); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.successResponse(w, r, "更新岗位成功", pos)
}

// DeactivatePosition 停用岗位。岗位上已有的安排保留，但不能再向其中添加新的安排
func (h *Handler) DeactivatePosition(w http.ResponseWriter, r *http.Request) {
	pos := positionFrom(r)
	if _, err := resolverFrom(r).RequirePosition(r.Context(), pos); err != nil {
		h.domainError(w, r, err)
		return
	}

	if !pos.IsActive {
		h.successResponse(w, r, "岗位已停用", pos)
		return
	}

	pos.IsActive = false
	if err := h.repository.UpdatePosition(r.Context(), pos); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.successResponse(w, r, "停用岗位成功", pos)
}

func (h *Handler) GetPositionShifts(w http.ResponseWriter, r *http.Request) {
	shifts := positionFrom(r).Shifts
	if shifts == nil {
		shifts = make([]domain.Shift, 0)
	}
	h.successResponse(w, r, "获取班次成功", shifts)
}

func (h *Handler) AddPositionShifts(w http.ResponseWriter, r *http.Request) {
	pos := positionFrom(r)
	if _, err := resolverFrom(r).RequirePosition(r.Context(), pos); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		Shifts []shiftRequest `json:"shifts" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	shifts, err := toShifts(req.Shifts)
	if err != nil {
		h.validationError(w, r, err)
		return
	}

	if err := h.repository.AddShifts(r.Context(), pos.ID, shifts); err != nil {
		h.storeError(w, r, err, domain.ErrPositionNotFound)
		return
	}

	h.createdResponse(w, r, "添加班次成功", shifts)
}

func (h *Handler) DeletePositionShift(w http.ResponseWriter, r *http.Request) {
	pos := positionFrom(r)
	if _, err := resolverFrom(r).RequirePosition(r.Context(), pos); err != nil {
		h.domainError(w, r, err)
		return
	}

	shiftID, ok := idParam(r, "shiftID")
	if !ok {
		h.domainError(w, r, domain.ErrShiftNotFound)
		return
	}

	if err := h.repository.DeleteShift(r.Context(), pos.ID, shiftID); err != nil {
		h.storeError(w, r, err, domain.ErrShiftNotFound)
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}

// ApplyTemplateResult 是模板应用到单个岗位上的结果
type ApplyTemplateResult struct {
	PositionID    int64          `json:"positionID"`
	ShiftsCreated int            `json:"shiftsCreated"`
	Shifts        []domain.Shift `json:"shifts"`
	Skipped       bool           `json:"skipped"`
	Reason        string         `json:"reason,omitempty"`
}

// resolveTemplateShifts 根据模板类型得到需要创建的班次
func (h *Handler) resolveTemplateShifts(r *http.Request, templateType string, templateID *int64, rule, start, end string, custom []domain.ShiftTemplateShift) ([]domain.ShiftTemplateShift, error) {
	switch templateType {
	case utils.TemplateCustom:
		if err := utils.ValidateTemplateShifts(custom); err != nil {
			return nil, domain.ErrInvalidTemplate.WithDetail("reason", err.Error())
		}
		return custom, nil
	case utils.TemplateRecurring:
		shifts, err := utils.RecurringShifts(rule, start, end)
		if err != nil {
			return nil, domain.ErrInvalidTemplate.WithDetail("reason", err.Error())
		}
		return shifts, nil
	case "":
		if templateID == nil {
			return nil, domain.ErrInvalidTemplate.WithDetail("reason", "需要指定模板类型或模板ID")
		}
		stm, err := h.repository.GetShiftTemplateByID(r.Context(), *templateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrInvalidTemplate.WithDetail("templateID", *templateID)
			}
			return nil, err
		}
		return stm.Shifts, nil
	default:
		shifts, ok := utils.BuiltinShiftTemplate(templateType)
		if !ok {
			return nil, domain.ErrInvalidTemplate.WithDetail("templateType", templateType)
		}
		return shifts, nil
	}
}

// ApplyShiftTemplate 将模板中的班次追加到多个岗位上。
// 追加后会违反全天班次规则的岗位会被跳过，其他岗位照常处理。
func (h *Handler) ApplyShiftTemplate(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).RequireAttendantManager(r.Context(), event.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	var req struct {
		PositionIDs  []int64                     `json:"positionIDs" validate:"required,min=1,dive,gt=0"`
		TemplateType string                      `json:"templateType" validate:"omitempty,oneof=standard extended allday custom recurring"`
		TemplateID   *int64                      `json:"templateID" validate:"omitempty,gt=0"`
		Rule         string                      `json:"rule"`
		StartTime    string                      `json:"startTime"`
		EndTime      string                      `json:"endTime"`
		CustomShifts []domain.ShiftTemplateShift `json:"customShifts"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	templateShifts, err := h.resolveTemplateShifts(r, req.TemplateType, req.TemplateID, req.Rule, req.StartTime, req.EndTime, req.CustomShifts)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	positions, err := h.repository.GetPositionsByEventID(r.Context(), event.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	inEvent := make(map[int64]bool, len(positions))
	for _, pos := range positions {
		inEvent[pos.ID] = true
	}
	for _, id := range req.PositionIDs {
		if !inEvent[id] {
			h.domainError(w, r, domain.ErrPositionNotFound.WithDetail("positionID", id))
			return
		}
	}

	results := make([]ApplyTemplateResult, 0, len(req.PositionIDs))
	total := 0
	for _, id := range req.PositionIDs {
		shifts := utils.TemplateToShifts(templateShifts)
		if err := h.repository.AddShifts(r.Context(), id, shifts); err != nil {
			if errors.Is(err, domain.ErrShiftLayout) {
				results = append(results, ApplyTemplateResult{
					PositionID: id,
					Shifts:     make([]domain.Shift, 0),
					Skipped:    true,
					Reason:     domain.ErrShiftLayout.Message,
				})
				continue
			}
			h.internalServerError(w, r, err)
			return
		}
		results = append(results, ApplyTemplateResult{
			PositionID:    id,
			ShiftsCreated: len(shifts),
			Shifts:        shifts,
		})
		total += len(shifts)
	}

	h.createdResponse(w, r, "应用班次模板成功", struct {
		Results       []ApplyTemplateResult `json:"results"`
		ShiftsCreated int                   `json:"shiftsCreated"`
	}{
		Results:       results,
		ShiftsCreated: total,
	})
}
