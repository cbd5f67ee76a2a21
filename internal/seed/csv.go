package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

// CSV 表头，空闲时间一列的格式为 "08:00-12:00, 13:30-17:00"
const (
	columnUsername     = "用户名"
	columnFullName     = "姓名"
	columnEmail        = "邮箱"
	columnRole         = "角色"
	columnAvailability = "空闲时间"
)

func parseAvailability(raw string) ([]domain.AvailabilityWindow, error) {
	windows := make([]domain.AvailabilityWindow, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// 兼容全角冒号
		part = strings.ReplaceAll(part, "：", ":")
		start, end, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("无法解析空闲时间 %q", part)
		}
		windows = append(windows, domain.AvailabilityWindow{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)})
	}
	if err := utils.ValidateAvailability(windows); err != nil {
		return nil, err
	}
	return windows, nil
}

// ReadAttendantsCSV 读取人员名单，格式错误的行会被跳过并记录日志
func ReadAttendantsCSV(r io.Reader) ([]FixtureUser, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, header := range headers {
		index[strings.TrimSpace(header)] = i
	}
	if _, ok := index[columnUsername]; !ok {
		return nil, errors.New("没有找到用户名列")
	}

	column := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	users := make([]FixtureUser, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		u := FixtureUser{
			Username: column(row, columnUsername),
			FullName: column(row, columnFullName),
			Email:    column(row, columnEmail),
			Role:     domain.Role(column(row, columnRole)),
		}
		if u.Username == "" {
			slog.Warn("没有找到用户名，跳过该行", slog.Int("line", line))
			continue
		}

		u.Availability, err = parseAvailability(column(row, columnAvailability))
		if err != nil {
			slog.Warn("空闲时间格式错误，跳过该行", slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}

		users = append(users, u)
	}

	return users, nil
}

// ImportAttendants 将 CSV 中的人员加入已有的活动，不存在的用户会被创建
func ImportAttendants(ctx context.Context, store Store, eventID int64, r io.Reader, opts Options) (*Result, error) {
	rows, err := ReadAttendantsCSV(r)
	if err != nil {
		return nil, err
	}
	result := &Result{EventID: eventID}
	if len(rows) == 0 {
		return result, nil
	}

	users := make([]*domain.User, len(rows))
	userIDs := make([]int64, len(rows))
	for i, row := range rows {
		user, created, err := ensureUser(ctx, store, row, opts)
		if err != nil {
			return nil, fmt.Errorf("无法获取用户 %s: %w", row.Username, err)
		}
		if created {
			result.UsersCreated++
		}
		users[i] = user
		userIDs[i] = user.ID
	}

	if err := store.AddEventAttendants(ctx, eventID, userIDs); err != nil {
		return nil, fmt.Errorf("无法添加人员: %w", err)
	}
	result.Attendants = len(userIDs)

	for i, row := range rows {
		if len(row.Availability) == 0 {
			continue
		}
		if err := store.ReplaceAvailability(ctx, eventID, users[i].ID, row.Availability); err != nil {
			return nil, fmt.Errorf("无法写入 %s 的空闲时间: %w", row.Username, err)
		}
	}

	slog.Info("导入人员完成", slog.Int64("eventID", eventID), slog.Int("attendants", result.Attendants), slog.Int("usersCreated", result.UsersCreated))
	return result, nil
}
