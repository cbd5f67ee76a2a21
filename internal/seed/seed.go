// Package seed 用于向数据库中写入测试数据：从 YAML 文件导入完整的活动，
// 从 CSV 文件导入人员名单，或者生成随机的活动。
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/utils"
)

type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	CreateEvent(ctx context.Context, event *domain.Event) error
	CreateEventPermission(ctx context.Context, perm *domain.EventPermission) error
	CreatePosition(ctx context.Context, pos *domain.Position) error
	AddShifts(ctx context.Context, positionID int64, shifts []domain.Shift) error
	AddEventAttendants(ctx context.Context, eventID int64, userIDs []int64) error
	ReplaceAvailability(ctx context.Context, eventID int64, userID int64, windows []domain.AvailabilityWindow) error
}

// Options 是新建用户时使用的默认值
type Options struct {
	Password    string
	EmailDomain string
}

type FixtureEvent struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Location    string  `yaml:"location"`
	StartDate   string  `yaml:"startDate"`
	EndDate     string  `yaml:"endDate"`
	StartTime   *string `yaml:"startTime"`
	EndTime     *string `yaml:"endTime"`
}

type FixtureShift struct {
	Name     string `yaml:"name"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	IsAllDay bool   `yaml:"allDay"`
}

type FixturePosition struct {
	Number      int32          `yaml:"number"`
	Name        string         `yaml:"name"`
	Department  string         `yaml:"department"`
	Description string         `yaml:"description"`
	Overseer    string         `yaml:"overseer"`
	Keyman      string         `yaml:"keyman"`
	Template    string         `yaml:"template"` // 内置模板名称，和 shifts 二选一
	Shifts      []FixtureShift `yaml:"shifts"`
}

type FixtureUser struct {
	Username     string                      `yaml:"username"`
	FullName     string                      `yaml:"fullName"`
	Email        string                      `yaml:"email"`
	Role         domain.Role                 `yaml:"role"`
	Availability []domain.AvailabilityWindow `yaml:"availability"`
}

type FixturePermission struct {
	Username  string            `yaml:"username"`
	Role      domain.EventRole  `yaml:"role"`
	ScopeType *domain.ScopeType `yaml:"scopeType"`
	ScopeIDs  []string          `yaml:"scopeIDs"`
}

// Fixture 描述一个完整的活动。owner 是活动创建者的用户名，必须已经存在于数据库中
type Fixture struct {
	Owner       string              `yaml:"owner"`
	Event       FixtureEvent        `yaml:"event"`
	Positions   []FixturePosition   `yaml:"positions"`
	Attendants  []FixtureUser       `yaml:"attendants"`
	Permissions []FixturePermission `yaml:"permissions"`
}

// Result 汇总一次导入写入的数据
type Result struct {
	EventID      int64
	Positions    int
	Shifts       int
	Attendants   int
	Permissions  int
	UsersCreated int
}

func LoadFixtureFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseFixture(file)
}

// ParseFixture 解析 YAML 并检查内容，未知字段视为错误
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	f := &Fixture{}
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("无法解析 fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fixture) Validate() error {
	if f.Owner == "" {
		return errors.New("缺少 owner")
	}
	if f.Event.Name == "" {
		return errors.New("缺少活动名称")
	}
	if _, err := f.event(0); err != nil {
		return err
	}

	numbers := make(map[int32]bool, len(f.Positions))
	for _, p := range f.Positions {
		if p.Number <= 0 || p.Name == "" || p.Department == "" {
			return fmt.Errorf("岗位 %q 缺少编号、名称或部门", p.Name)
		}
		if numbers[p.Number] {
			return fmt.Errorf("岗位编号 %d 重复", p.Number)
		}
		numbers[p.Number] = true
		if _, err := p.templateShifts(); err != nil {
			return fmt.Errorf("岗位 %d: %w", p.Number, err)
		}
	}

	for _, a := range f.Attendants {
		if a.Username == "" {
			return errors.New("人员缺少用户名")
		}
		if err := utils.ValidateAvailability(a.Availability); err != nil {
			return fmt.Errorf("人员 %s: %w", a.Username, err)
		}
	}

	for _, p := range f.Permissions {
		if !p.Role.Valid() {
			return fmt.Errorf("用户 %s 的活动角色 %q 无效", p.Username, p.Role)
		}
		if err := utils.ValidatePermissionScope(p.ScopeType, p.ScopeIDs); err != nil {
			return fmt.Errorf("用户 %s: %w", p.Username, err)
		}
	}

	return nil
}

func (f *Fixture) event(createdBy int64) (*domain.Event, error) {
	startDate, err := time.Parse("2006-01-02", f.Event.StartDate)
	if err != nil {
		return nil, fmt.Errorf("活动开始日期格式错误: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", f.Event.EndDate)
	if err != nil {
		return nil, fmt.Errorf("活动结束日期格式错误: %w", err)
	}

	e := &domain.Event{
		Name:        f.Event.Name,
		Description: f.Event.Description,
		Location:    f.Event.Location,
		StartDate:   startDate,
		EndDate:     endDate,
		StartTime:   f.Event.StartTime,
		EndTime:     f.Event.EndTime,
		CreatedBy:   createdBy,
	}
	if err := utils.ValidateEventWindow(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (p FixturePosition) templateShifts() ([]domain.ShiftTemplateShift, error) {
	if p.Template != "" {
		if len(p.Shifts) > 0 {
			return nil, errors.New("template 和 shifts 不能同时指定")
		}
		shifts, ok := utils.BuiltinShiftTemplate(p.Template)
		if !ok {
			return nil, fmt.Errorf("未知的班次模板 %q", p.Template)
		}
		return shifts, nil
	}
	if len(p.Shifts) == 0 {
		return nil, nil
	}

	shifts := make([]domain.ShiftTemplateShift, len(p.Shifts))
	for i, s := range p.Shifts {
		shifts[i] = domain.ShiftTemplateShift{Name: s.Name, StartTime: s.Start, EndTime: s.End, IsAllDay: s.IsAllDay}
	}
	if err := utils.ValidateTemplateShifts(shifts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ensureUser 返回用户名对应的用户，不存在时用 Options 中的默认密码创建
func ensureUser(ctx context.Context, store Store, u FixtureUser, opts Options) (*domain.User, bool, error) {
	user, err := store.GetUserByUsername(ctx, u.Username)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	user = &domain.User{
		Username:     u.Username,
		PasswordHash: string(passwordHash),
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     true,
	}
	if user.FullName == "" {
		user.FullName = u.Username
	}
	if user.Email == "" {
		user.Email = u.Username + "@" + opts.EmailDomain
	}
	if user.Role == "" {
		user.Role = domain.RoleAttendant
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Apply 按顺序写入活动、创建者的 OWNER 权限、岗位和班次、人员名单以及其他权限
func Apply(ctx context.Context, store Store, f *Fixture, opts Options) (*Result, error) {
	owner, err := store.GetUserByUsername(ctx, f.Owner)
	if err != nil {
		return nil, fmt.Errorf("无法获取 owner %s: %w", f.Owner, err)
	}

	event, err := f.event(owner.ID)
	if err != nil {
		return nil, err
	}
	if err := store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("无法创建活动: %w", err)
	}
	result := &Result{EventID: event.ID}

	if err := store.CreateEventPermission(ctx, &domain.EventPermission{
		EventID:  event.ID,
		UserID:   owner.ID,
		Role:     domain.EventRoleOwner,
		ScopeIDs: make([]string, 0),
	}); err != nil {
		return nil, fmt.Errorf("无法授予 owner 权限: %w", err)
	}
	result.Permissions++

	users := map[string]*domain.User{owner.Username: owner}
	lookup := func(username string) (*domain.User, error) {
		if user, ok := users[username]; ok {
			return user, nil
		}
		user, created, err := ensureUser(ctx, store, FixtureUser{Username: username}, opts)
		if err != nil {
			return nil, fmt.Errorf("无法获取用户 %s: %w", username, err)
		}
		if created {
			result.UsersCreated++
		}
		users[username] = user
		return user, nil
	}

	for _, a := range f.Attendants {
		user, created, err := ensureUser(ctx, store, a, opts)
		if err != nil {
			return nil, fmt.Errorf("无法获取用户 %s: %w", a.Username, err)
		}
		if created {
			result.UsersCreated++
		}
		users[a.Username] = user
	}

	for _, p := range f.Positions {
		pos := &domain.Position{
			EventID:        event.ID,
			PositionNumber: p.Number,
			Name:           p.Name,
			Department:     p.Department,
			Description:    p.Description,
			IsActive:       true,
		}
		if p.Overseer != "" {
			user, err := lookup(p.Overseer)
			if err != nil {
				return nil, err
			}
			pos.OverseerID = &user.ID
		}
		if p.Keyman != "" {
			user, err := lookup(p.Keyman)
			if err != nil {
				return nil, err
			}
			pos.KeymanID = &user.ID
		}
		if err := store.CreatePosition(ctx, pos); err != nil {
			return nil, fmt.Errorf("无法创建岗位 %d: %w", p.Number, err)
		}
		result.Positions++

		templateShifts, err := p.templateShifts()
		if err != nil {
			return nil, err
		}
		if len(templateShifts) == 0 {
			continue
		}
		shifts := utils.TemplateToShifts(templateShifts)
		if err := store.AddShifts(ctx, pos.ID, shifts); err != nil {
			return nil, fmt.Errorf("无法为岗位 %d 添加班次: %w", p.Number, err)
		}
		result.Shifts += len(shifts)
	}

	if len(f.Attendants) > 0 {
		userIDs := make([]int64, len(f.Attendants))
		for i, a := range f.Attendants {
			userIDs[i] = users[a.Username].ID
		}
		if err := store.AddEventAttendants(ctx, event.ID, userIDs); err != nil {
			return nil, fmt.Errorf("无法添加人员: %w", err)
		}
		result.Attendants = len(userIDs)

		for _, a := range f.Attendants {
			if len(a.Availability) == 0 {
				continue
			}
			if err := store.ReplaceAvailability(ctx, event.ID, users[a.Username].ID, a.Availability); err != nil {
				return nil, fmt.Errorf("无法写入 %s 的空闲时间: %w", a.Username, err)
			}
		}
	}

	for _, p := range f.Permissions {
		user, err := lookup(p.Username)
		if err != nil {
			return nil, err
		}
		perm := &domain.EventPermission{
			EventID:   event.ID,
			UserID:    user.ID,
			Role:      p.Role,
			ScopeType: p.ScopeType,
			ScopeIDs:  p.ScopeIDs,
			GrantedBy: &owner.ID,
		}
		if perm.ScopeIDs == nil {
			perm.ScopeIDs = make([]string, 0)
		}
		if err := store.CreateEventPermission(ctx, perm); err != nil {
			return nil, fmt.Errorf("无法授予 %s 权限: %w", p.Username, err)
		}
		result.Permissions++
	}

	slog.Info("导入活动完成",
		slog.Int64("eventID", result.EventID),
		slog.Int("positions", result.Positions),
		slog.Int("shifts", result.Shifts),
		slog.Int("attendants", result.Attendants),
		slog.Int("permissions", result.Permissions),
		slog.Int("usersCreated", result.UsersCreated),
	)
	return result, nil
}
