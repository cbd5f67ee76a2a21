package handler

import (
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/assignment"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type createAssignmentRequest struct {
	UserID     int64   `json:"userID" validate:"required,gt=0"`
	PositionID int64   `json:"positionID" validate:"required,gt=0"`
	ShiftID    *int64  `json:"shiftID" validate:"omitempty,gt=0"`
	ShiftStart string  `json:"shiftStart" validate:"required,datetime=15:04"`
	ShiftEnd   string  `json:"shiftEnd" validate:"required,datetime=15:04"`
	Status     *string `json:"status" validate:"omitempty,oneof=ASSIGNED CONFIRMED DECLINED COMPLETED NO_SHOW"`
	Notes      string  `json:"notes" validate:"max=2000"`
}

func (req createAssignmentRequest) toCreateRequest() assignment.CreateRequest {
	cr := assignment.CreateRequest{
		UserID:     req.UserID,
		PositionID: req.PositionID,
		ShiftID:    req.ShiftID,
		ShiftStart: req.ShiftStart,
		ShiftEnd:   req.ShiftEnd,
		Notes:      req.Notes,
	}
	if req.Status != nil {
		cr.Status = domain.AssignmentStatus(*req.Status)
	}
	return cr
}

// queryInt64 读取查询参数中的正整数，参数缺失时返回 nil
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, domain.NewError(domain.KindValidation, "InvalidRequest", "查询参数 "+name+" 必须是正整数")
	}
	return &v, nil
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	filter := domain.AssignmentFilter{Limit: defaultListLimit}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.AssignmentStatus(raw)
		filter.Status = &status
	}

	var err error
	if filter.PositionID, err = queryInt64(r, "positionID"); err != nil {
		h.domainError(w, r, err)
		return
	}
	if filter.UserID, err = queryInt64(r, "userID"); err != nil {
		h.domainError(w, r, err)
		return
	}

	limit, err := queryInt64(r, "limit")
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if limit != nil {
		filter.Limit = int(min(*limit, maxListLimit))
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			h.domainError(w, r, domain.NewError(domain.KindValidation, "InvalidRequest", "查询参数 offset 必须是非负整数"))
			return
		}
		filter.Offset = offset
	}

	result, err := h.assignments.List(r.Context(), resolverFrom(r), eventFrom(r).ID, filter)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取安排列表成功", result)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := idParam(r, "assignmentID")
	if !ok {
		h.domainError(w, r, domain.ErrAssignmentNotFound)
		return
	}

	a, err := h.assignments.Get(r.Context(), resolverFrom(r), eventFrom(r).ID, assignmentID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取安排成功", a)
}

func (h *Handler) GetAssignmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.assignments.Stats(r.Context(), resolverFrom(r), eventFrom(r).ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取安排统计成功", stats)
}

// CheckAssignmentConflict 查询某人在给定时间段内是否已有安排，不会修改任何数据
func (h *Handler) CheckAssignmentConflict(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	if _, err := resolverFrom(r).Resolve(r.Context(), event.ID, domain.EventRoleViewer); err != nil {
		h.domainError(w, r, err)
		return
	}

	userID, err := queryInt64(r, "userID")
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if userID == nil {
		h.domainError(w, r, domain.NewError(domain.KindValidation, "InvalidRequest", "缺少查询参数 userID"))
		return
	}
	excludeID, err := queryInt64(r, "excludeID")
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	var exclude int64
	if excludeID != nil {
		exclude = *excludeID
	}

	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	conflict, err := h.assignments.HasConflict(r.Context(), event.ID, *userID, start, end, exclude)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "检查时间冲突成功", struct {
		HasConflict bool `json:"hasConflict"`
	}{conflict})
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	a, err := h.assignments.Create(r.Context(), resolverFrom(r), eventFrom(r).ID, req.toCreateRequest())
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.createdResponse(w, r, "创建安排成功", a)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := idParam(r, "assignmentID")
	if !ok {
		h.domainError(w, r, domain.ErrAssignmentNotFound)
		return
	}

	var req struct {
		UserID     *int64  `json:"userID" validate:"omitempty,gt=0"`
		PositionID *int64  `json:"positionID" validate:"omitempty,gt=0"`
		ShiftID    *int64  `json:"shiftID" validate:"omitempty,gt=0"`
		ShiftStart *string `json:"shiftStart" validate:"omitempty,datetime=15:04"`
		ShiftEnd   *string `json:"shiftEnd" validate:"omitempty,datetime=15:04"`
		Status     *string `json:"status" validate:"omitempty,oneof=ASSIGNED CONFIRMED DECLINED COMPLETED NO_SHOW"`
		Notes      *string `json:"notes" validate:"omitempty,max=2000"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	update := assignment.UpdateRequest{
		UserID:     req.UserID,
		PositionID: req.PositionID,
		ShiftID:    req.ShiftID,
		ShiftStart: req.ShiftStart,
		ShiftEnd:   req.ShiftEnd,
		Notes:      req.Notes,
	}
	if req.Status != nil {
		status := domain.AssignmentStatus(*req.Status)
		update.Status = &status
	}

	a, err := h.assignments.Update(r.Context(), resolverFrom(r), eventFrom(r).ID, assignmentID, update)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新安排成功", a)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := idParam(r, "assignmentID")
	if !ok {
		h.domainError(w, r, domain.ErrAssignmentNotFound)
		return
	}

	if err := h.assignments.Delete(r.Context(), resolverFrom(r), eventFrom(r).ID, assignmentID); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除安排成功", nil)
}

// ClearAssignments 删除活动中所有未完成的安排
func (h *Handler) ClearAssignments(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.assignments.ClearEvent(r.Context(), resolverFrom(r), eventFrom(r).ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "清空安排成功", struct {
		Deleted int64 `json:"deleted"`
	}{deleted})
}

func (h *Handler) CreateBulkAssignments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Assignments []createAssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	items := make([]assignment.CreateRequest, len(req.Assignments))
	for i, item := range req.Assignments {
		items[i] = item.toCreateRequest()
	}

	result, err := h.assignments.CreateBulk(r.Context(), resolverFrom(r), eventFrom(r).ID, items)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.createdResponse(w, r, "批量创建安排成功", result)
}

func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptimizeFor             string `json:"optimizeFor" validate:"omitempty,oneof=workload experience availability"`
		MaxAssignmentsPerPerson int    `json:"maxAssignmentsPerPerson" validate:"gte=0"`
		PreferredSkillMatch     bool   `json:"preferredSkillMatch"`
		AllowOverlappingShifts  bool   `json:"allowOverlappingShifts"`
	}

	// 请求体为空时使用默认选项
	if r.ContentLength != 0 {
		if err := h.readJSON(r, &req); err != nil {
			h.validationError(w, r, err)
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	opts := scheduler.Options{
		OptimizeFor:             scheduler.OptimizeFor(req.OptimizeFor),
		MaxAssignmentsPerPerson: req.MaxAssignmentsPerPerson,
		PreferredSkillMatch:     req.PreferredSkillMatch,
		AllowOverlappingShifts:  req.AllowOverlappingShifts,
	}
	if opts.OptimizeFor == "" {
		opts.OptimizeFor = scheduler.OptimizeWorkload
	}

	result, err := h.assignments.AutoAssign(r.Context(), resolverFrom(r), eventFrom(r).ID, opts)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.createdResponse(w, r, "自动排班成功", result)
}
