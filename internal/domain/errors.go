package domain

import "maps"

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindValidation     ErrorKind = "validation"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindIntegrity      ErrorKind = "integrity"
	// KindNoResult 表示操作正常执行但没有产生任何结果，例如自动排班没有可分配的岗位
	KindNoResult ErrorKind = "no_result"
)

// Error 是业务层返回给调用方的错误，Code 是机器可读的名称，Message 是给用户看的中文提示
type Error struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 按 Code 比较，使得附带了 Details 的副本依然能用 errors.Is 匹配到哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail 返回附带了额外信息的副本，不会修改哨兵错误本身
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	maps.Copy(cp.Details, e.Details)
	cp.Details[key] = value
	return &cp
}

// Wrap 返回携带底层原因的副本
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrUnauthenticated    = NewError(KindAuthentication, "Unauthenticated", "用户未登录")
	ErrInvalidToken       = NewError(KindAuthentication, "InvalidToken", "无效的令牌")
	ErrInvalidCredentials = NewError(KindAuthentication, "InvalidCredentials", "用户名不存在或密码错误")

	ErrAccessDenied    = NewError(KindAuthorization, "AccessDenied", "权限不足")
	ErrOutOfScope      = NewError(KindAuthorization, "OutOfScope", "目标不在你的管理范围内")
	ErrAccountDisabled = NewError(KindAuthorization, "AccountDisabled", "账户已停用")
	ErrInitialAdmin    = NewError(KindAuthorization, "InitialAdmin", "禁止操作初始管理员")

	ErrInvalidTime         = NewError(KindValidation, "InvalidTime", "时间格式错误或结束时间不晚于开始时间")
	ErrInvalidStatus       = NewError(KindValidation, "InvalidStatus", "无效的安排状态")
	ErrNotAssociated       = NewError(KindValidation, "NotAssociated", "该用户不在此活动的人员名单中")
	ErrInvalidPosition     = NewError(KindValidation, "InvalidPosition", "岗位不存在、不属于该活动或已停用")
	ErrMissingAssociations = NewError(KindValidation, "MissingAssociations", "部分用户不在此活动的人员名单中")
	ErrInvalidPositions    = NewError(KindValidation, "InvalidPositions", "部分岗位不存在、不属于该活动或已停用")
	ErrInvalidScope        = NewError(KindValidation, "InvalidScope", "无效的权限范围")
	ErrInvalidRole         = NewError(KindValidation, "InvalidRole", "无效的活动角色")
	ErrShiftLayout         = NewError(KindValidation, "ShiftLayout", "全天班次不能与其他班次共存")
	ErrInvalidTemplate     = NewError(KindValidation, "InvalidTemplate", "无效的班次模板")
	ErrInvalidOTP          = NewError(KindValidation, "InvalidOTP", "验证码错误")
	ErrWrongPassword       = NewError(KindValidation, "WrongPassword", "旧密码错误")

	ErrConflictingAssignment   = NewError(KindConflict, "ConflictingAssignment", "该用户在此时间段已有其他安排")
	ErrCompletedAssignment     = NewError(KindConflict, "CompletedAssignment", "已完成的安排不能被修改或删除")
	ErrLastOwner               = NewError(KindConflict, "LastOwner", "活动必须保留至少一个 OWNER")
	ErrDuplicatePermission     = NewError(KindConflict, "DuplicatePermission", "该用户在此活动中已有权限")
	ErrAttendantHasAssignments = NewError(KindConflict, "AttendantHasAssignments", "该用户在此活动中仍有安排，无法移出名单")
	ErrDuplicateAttendant      = NewError(KindConflict, "DuplicateAttendant", "该用户已在此活动的人员名单中")
	ErrEditConflict            = NewError(KindConflict, "EditConflict", "数据已被其他人修改，请重试")
	ErrDuplicatePosition       = NewError(KindConflict, "DuplicatePosition", "该活动中已有相同编号的岗位")
	ErrDuplicateTemplate       = NewError(KindConflict, "DuplicateTemplate", "已存在同名的班次模板")
	ErrDuplicateUsername       = NewError(KindConflict, "DuplicateUsername", "用户名已存在")
	ErrDuplicateEmail          = NewError(KindConflict, "DuplicateEmail", "邮箱已被占用")
	ErrUserHasEvents           = NewError(KindConflict, "UserHasEvents", "该用户创建过活动，请先停用该用户")

	ErrEventNotFound      = NewError(KindNotFound, "NotFound", "活动不存在")
	ErrAssignmentNotFound = NewError(KindNotFound, "NotFound", "安排不存在")
	ErrPermissionNotFound = NewError(KindNotFound, "NotFound", "权限记录不存在")
	ErrPositionNotFound   = NewError(KindNotFound, "NotFound", "岗位不存在")
	ErrShiftNotFound      = NewError(KindNotFound, "NotFound", "班次不存在")
	ErrUserNotFound       = NewError(KindNotFound, "NotFound", "用户不存在")
	ErrTemplateNotFound   = NewError(KindNotFound, "NotFound", "模板不存在")

	ErrNoUnassignedPositions = NewError(KindNoResult, "NoUnassignedPositions", "没有需要分配的岗位")
	ErrNoEligiblePeople      = NewError(KindNoResult, "NoEligiblePeople", "没有可以分配的人员")

	ErrIntegrity = NewError(KindIntegrity, "Integrity", "数据存储出现错误")
)
