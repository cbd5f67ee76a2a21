package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

func resetPasswordOTPKey(username string) string {
	return fmt.Sprintf("otp_%s_reset_password", username)
}

func changeEmailOTPKey(username string, email string) string {
	return fmt.Sprintf("otp_%s_change_email_to_%s", username, email)
}

// otpMinutes 是邮件中显示的验证码有效期，配置以秒为单位
func (h *Handler) otpMinutes() int {
	return h.config.OTP.Expiration / 60
}

func (h *Handler) redisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationExpiration)*time.Second)
}

// saveOTP 生成验证码并写入 redis，同一个 key 的旧验证码会被覆盖
func (h *Handler) saveOTP(ctx context.Context, key string) (string, error) {
	otp := utils.GenerateRandomOTP()

	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	if err := h.redisClient.Set(ctx, key, otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		return "", err
	}
	return otp, nil
}

// verifyOTP 校验验证码，过期和不匹配都返回 ErrInvalidOTP
func (h *Handler) verifyOTP(ctx context.Context, key string, otp string) error {
	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	stored, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrInvalidOTP
		}
		return err
	}
	if stored != otp {
		return domain.ErrInvalidOTP
	}
	return nil
}

// clearOTP 删除已经使用过的验证码，失败只记录日志，验证码到期后会自动失效
func (h *Handler) clearOTP(ctx context.Context, key string) {
	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	if err := h.redisClient.Del(ctx, key).Err(); err != nil {
		slog.Warn("无法删除验证码", slog.String("key", key), slog.String("error", err.Error()))
	}
}
