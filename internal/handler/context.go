package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type ContextKey string

var (
	RoleCtxKey       ContextKey = "role"
	SubCtxKey        ContextKey = "sub"
	RequestIDCtxKey  ContextKey = "requestID"
	ResolverCtxKey   ContextKey = "resolver"
	MyInfoCtx        ContextKey = "myInfo"
	UserInfoCtx      ContextKey = "userInfo"
	ShiftTemplateCtx ContextKey = "shiftTemplate"
	EventCtx         ContextKey = "event"
	PositionCtx      ContextKey = "position"
)

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDCtxKey).(string)
	return id
}

// resolverFrom 返回当前请求的权限解析器，同一个请求内共享权限查询结果
func resolverFrom(r *http.Request) *access.Resolver {
	return r.Context().Value(ResolverCtxKey).(*access.Resolver)
}

func eventFrom(r *http.Request) *domain.Event {
	return r.Context().Value(EventCtx).(*domain.Event)
}

func positionFrom(r *http.Request) *domain.Position {
	return r.Context().Value(PositionCtx).(*domain.Position)
}
