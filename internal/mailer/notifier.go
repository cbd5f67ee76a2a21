package mailer

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type NotifierStore interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetEventByID(ctx context.Context, id int64) (*domain.Event, error)
	GetPositionsByEventID(ctx context.Context, eventID int64) ([]*domain.Position, error)
}

type MailPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// AssignmentNotifier 为每一条新建的安排给被安排的人发送一封邮件。
// 发送失败只记录日志，不会影响已经写入的安排。
type AssignmentNotifier struct {
	store     NotifierStore
	publisher MailPublisher
}

func NewAssignmentNotifier(store NotifierStore, publisher MailPublisher) *AssignmentNotifier {
	return &AssignmentNotifier{store: store, publisher: publisher}
}

func (n *AssignmentNotifier) NotifyAssignments(ctx context.Context, eventID int64, assignments []*domain.Assignment) {
	event, err := n.store.GetEventByID(ctx, eventID)
	if err != nil {
		slog.Error("无法读取活动，跳过安排通知", "eventID", eventID, "error", err)
		return
	}

	positions, err := n.store.GetPositionsByEventID(ctx, eventID)
	if err != nil {
		slog.Error("无法读取岗位，跳过安排通知", "eventID", eventID, "error", err)
		return
	}
	positionsMap := make(map[int64]*domain.Position, len(positions))
	for _, p := range positions {
		positionsMap[p.ID] = p
	}

	users := make(map[int64]*domain.User)
	sent := 0
	for _, a := range assignments {
		user, ok := users[a.UserID]
		if !ok {
			user, err = n.store.GetUserByID(ctx, a.UserID)
			if err != nil {
				slog.Error("无法读取用户，跳过安排通知", "userID", a.UserID, "assignmentID", a.ID, "error", err)
				continue
			}
			users[a.UserID] = user
		}

		data := domain.AssignmentCreatedMailData{
			FullName:   user.FullName,
			EventName:  event.Name,
			ShiftStart: a.ShiftStart,
			ShiftEnd:   a.ShiftEnd,
			Notes:      a.Notes,
		}
		if pos, ok := positionsMap[a.PositionID]; ok {
			data.PositionName = pos.Name
			data.Department = pos.Department
		}

		msg := domain.MailMessage{
			Type: domain.MailAssignmentCreated,
			To:   user.Email,
			Data: data,
		}
		if err := n.publisher.Publish(ctx, msg); err != nil {
			slog.Error("安排通知发送失败", "assignmentID", a.ID, "error", err)
			continue
		}
		sent++
	}

	slog.Debug("安排通知已放入队列", "eventID", eventID, "sent", sent, "total", len(assignments))
}
