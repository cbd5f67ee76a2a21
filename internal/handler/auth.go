package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

const tokenCookieName = "__event_roster_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken 签发 JWT 并写入 http-only cookie，配置中的过期时间以秒为单位
func (h *Handler) issueToken(w http.ResponseWriter, user *domain.User) error {
	now := time.Now()
	expiration := now.Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
	}
	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, cookie)

	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	// 用户不存在和密码错误返回同样的提示
	user, err := h.repository.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.storeError(w, r, err, domain.ErrInvalidCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.domainError(w, r, domain.ErrInvalidCredentials)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	if !user.IsActive {
		h.domainError(w, r, domain.ErrAccountDisabled)
		return
	}

	if err := h.issueToken(w, user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "登录成功", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    tokenCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "登出成功", nil)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	const sent = "重置密码所需验证码已通过邮件发送"

	user, err := h.repository.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		// 用户不存在时同样返回成功，避免接口被用来探测用户名
		if errors.Is(err, sql.ErrNoRows) {
			h.successResponse(w, r, sent, nil)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	otp, err := h.saveOTP(r.Context(), resetPasswordOTPKey(user.Username))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.mailer.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailResetPassword,
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   user.FullName,
			OTP:        otp,
			Expiration: h.otpMinutes(),
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, sent, nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		OTP      string `json:"otp" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	key := resetPasswordOTPKey(req.Username)
	if err := h.verifyOTP(r.Context(), key, req.OTP); err != nil {
		h.domainError(w, r, err)
		return
	}

	user, err := h.repository.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.storeError(w, r, err, domain.ErrUserNotFound)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	user.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateUser(r.Context(), user); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.clearOTP(r.Context(), key)

	h.successResponse(w, r, "重置密码成功", nil)
}
