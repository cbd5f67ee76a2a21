package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "requestID", requestIDFrom(r), "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type ErrorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Code    string           `json:"code"`
	Details map[string]any   `json:"details,omitempty"`
}

type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) createdResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindAuthentication: http.StatusUnauthorized,
	domain.KindAuthorization:  http.StatusForbidden,
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindConflict:       http.StatusConflict,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindIntegrity:      http.StatusInternalServerError,
	domain.KindNoResult:       http.StatusOK,
}

// domainError 根据业务错误的类型返回对应的状态码，非业务错误一律视为服务器内部错误
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		h.internalServerError(w, r, err)
		return
	}

	status, ok := kindStatus[domainErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		h.logInternalServerError(r, err)
	}

	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: domainErr.Message,
		Data:    nil,
		Error: &ErrorBody{
			Kind:    domainErr.Kind,
			Code:    domainErr.Code,
			Details: domainErr.Details,
		},
	})
}

// validationError 将请求参数的校验错误转换为 InvalidRequest 业务错误
func (h *Handler) validationError(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msg = validationErrors[0].Translate(h.translator)
	}

	h.domainError(w, r, domain.NewError(domain.KindValidation, "InvalidRequest", msg))
}
