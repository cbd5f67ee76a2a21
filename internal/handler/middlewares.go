package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const requestIDHeader = "X-Request-ID"

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// requestID 沿用客户端传入的请求 ID，没有时生成一个新的
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), RequestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "requestID", requestIDFrom(r), "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// metrics 按路由模板统计请求数和耗时，避免把 ID 放进标签
func (h *Handler) metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.StatusCode)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 从 cookie 中获取 token
		cookie, err := r.Cookie(tokenCookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.domainError(w, r, domain.ErrUnauthenticated)
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 验证 token
		tokenString := cookie.Value
		claims := &AuthClaims{}
		_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.domainError(w, r, domain.ErrInvalidToken)
			return
		}

		// 将 claims 中的 role 和 sub 附在 context 中
		ctx := r.Context()
		ctx = context.WithValue(ctx, RoleCtxKey, claims.Role)
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)

		// 执行下一个 handler
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actor 为每个请求创建一个权限解析器
func (h *Handler) actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subString := r.Context().Value(SubCtxKey).(string)
		sub, err := strconv.ParseInt(subString, 10, 64)
		if err != nil {
			h.domainError(w, r, domain.ErrInvalidToken)
			return
		}
		role := domain.Role(r.Context().Value(RoleCtxKey).(string))

		rv := access.NewResolver(h.repository, access.Actor{UserID: sub, Role: role})
		ctx := context.WithValue(r.Context(), ResolverCtxKey, rv)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) myInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		myInfo, err := h.repository.GetUserByID(r.Context(), resolverFrom(r).Actor().UserID)
		if err != nil {
			// 令牌有效但用户已被删除
			h.storeError(w, r, err, domain.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), MyInfoCtx, myInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleCtx := r.Context().Value(RoleCtxKey).(string)
			role := domain.Role(roleCtx)
			if !slices.Contains(roles, role) {
				h.domainError(w, r, domain.ErrAccessDenied.WithDetail("requiredRoles", roles))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := idParam(r, "id")
		if !ok {
			h.domainError(w, r, domain.ErrUserNotFound)
			return
		}

		user, err := h.repository.GetUserByID(r.Context(), userID)
		if err != nil {
			h.storeError(w, r, err, domain.ErrUserNotFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(UserInfoCtx).(*domain.User)
		if user.Username == h.config.InitialAdmin.Username {
			h.domainError(w, r, domain.ErrInitialAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// idParam 读取路径中的 ID 参数，格式错误时按资源不存在处理
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) shiftTemplate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		templateID, ok := idParam(r, "templateID")
		if !ok {
			h.domainError(w, r, domain.ErrTemplateNotFound)
			return
		}

		st, err := h.repository.GetShiftTemplateByID(r.Context(), templateID)
		if err != nil {
			h.storeError(w, r, err, domain.ErrTemplateNotFound)
			return
		}

		ctx := context.WithValue(r.Context(), ShiftTemplateCtx, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// event 读取路径中的活动。没有任何权限的用户得到的是权限不足而不是活动信息
func (h *Handler) event(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := idParam(r, "eventID")
		if !ok {
			h.domainError(w, r, domain.ErrEventNotFound)
			return
		}

		if _, err := resolverFrom(r).Resolve(r.Context(), eventID, domain.EventRoleViewer); err != nil {
			h.domainError(w, r, err)
			return
		}

		event, err := h.repository.GetEventByID(r.Context(), eventID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.domainError(w, r, domain.ErrEventNotFound)
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		event.RefreshStatus(time.Now())

		ctx := context.WithValue(r.Context(), EventCtx, event)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// position 读取路径中的岗位，不属于当前活动的岗位视为不存在
func (h *Handler) position(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		positionID, ok := idParam(r, "positionID")
		if !ok {
			h.domainError(w, r, domain.ErrPositionNotFound)
			return
		}

		pos, err := h.repository.GetPositionByID(r.Context(), positionID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.domainError(w, r, domain.ErrPositionNotFound)
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if pos.EventID != eventFrom(r).ID {
			h.domainError(w, r, domain.ErrPositionNotFound)
			return
		}

		ctx := context.WithValue(r.Context(), PositionCtx, pos)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
