package handler

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.domainError(w, r, domain.ErrWrongPassword)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	myInfo.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.successResponse(w, r, "更新密码成功", nil)
}

func (h *Handler) RequireUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	exists, err := h.repository.CheckEmailIfExists(r.Context(), req.NewEmail)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.domainError(w, r, domain.ErrDuplicateEmail)
		return
	}

	// 验证码发送到新邮箱，证明调用者拥有该邮箱
	otp, err := h.saveOTP(r.Context(), changeEmailOTPKey(myInfo.Username, req.NewEmail))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.mailer.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailChangeEmail,
		To:   req.NewEmail,
		Data: domain.ChangeEmailMailData{
			FullName:   myInfo.FullName,
			OTP:        otp,
			Expiration: h.otpMinutes(),
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更改邮箱所需验证码已通过邮件发送", nil)
}

func (h *Handler) ConfirmUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OTP      string `json:"otp" validate:"required"`
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.validationError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationError(w, r, err)
		return
	}

	key := changeEmailOTPKey(myInfo.Username, req.NewEmail)
	if err := h.verifyOTP(r.Context(), key, req.OTP); err != nil {
		h.domainError(w, r, err)
		return
	}

	myInfo.Email = req.NewEmail
	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.storeError(w, r, err, domain.ErrEditConflict)
		return
	}

	h.clearOTP(r.Context(), key)

	h.successResponse(w, r, "更改邮箱成功", myInfo)
}
