package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

// RandomEvent 生成一个随机活动：createdBy 成为 OWNER，每个岗位使用标准模板，
// attendants 全部加入名单并各自带有一段随机的空闲时间
func RandomEvent(ctx context.Context, store Store, createdBy int64, positions int, attendants []*domain.User) (*Result, error) {
	event := utils.GenerateRandomEvent(createdBy)
	if err := store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("无法创建活动: %w", err)
	}
	result := &Result{EventID: event.ID}

	if err := store.CreateEventPermission(ctx, &domain.EventPermission{
		EventID:  event.ID,
		UserID:   createdBy,
		Role:     domain.EventRoleOwner,
		ScopeIDs: make([]string, 0),
	}); err != nil {
		return nil, fmt.Errorf("无法授予 owner 权限: %w", err)
	}
	result.Permissions++

	templateShifts, _ := utils.BuiltinShiftTemplate(utils.TemplateStandard)
	for _, pos := range utils.GenerateRandomPositions(event.ID, positions) {
		if err := store.CreatePosition(ctx, pos); err != nil {
			return nil, fmt.Errorf("无法创建岗位: %w", err)
		}
		result.Positions++

		shifts := utils.TemplateToShifts(templateShifts)
		if err := store.AddShifts(ctx, pos.ID, shifts); err != nil {
			return nil, fmt.Errorf("无法添加班次: %w", err)
		}
		result.Shifts += len(shifts)
	}

	if len(attendants) > 0 {
		userIDs := make([]int64, len(attendants))
		for i, u := range attendants {
			userIDs[i] = u.ID
		}
		if err := store.AddEventAttendants(ctx, event.ID, userIDs); err != nil {
			return nil, fmt.Errorf("无法添加人员: %w", err)
		}
		result.Attendants = len(userIDs)

		for _, id := range userIDs {
			if err := store.ReplaceAvailability(ctx, event.ID, id, utils.GenerateRandomAvailability()); err != nil {
				return nil, fmt.Errorf("无法写入空闲时间: %w", err)
			}
		}
	}

	slog.Info("插入随机活动成功",
		slog.Int64("eventID", result.EventID),
		slog.Int("positions", result.Positions),
		slog.Int("attendants", result.Attendants),
	)
	return result, nil
}
