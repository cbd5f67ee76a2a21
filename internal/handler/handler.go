package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/assignment"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

// Repository 是 handler 直接使用的存储接口，由 *repository.Repository 实现
type Repository interface {
	assignment.Store

	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	CheckEmailIfExists(ctx context.Context, email string) (bool, error)

	CreateEvent(ctx context.Context, event *domain.Event) error
	GetAllEvents(ctx context.Context) ([]*domain.Event, error)
	GetEventsForUser(ctx context.Context, userID int64) ([]*domain.Event, error)
	UpdateEvent(ctx context.Context, event *domain.Event) error
	DeleteEvent(ctx context.Context, id int64) error

	GetEventPermissionByID(ctx context.Context, id int64) (*domain.EventPermission, error)
	GetEventPermissions(ctx context.Context, eventID int64) ([]*domain.EventPermission, error)
	CreateEventPermission(ctx context.Context, perm *domain.EventPermission) error
	UpdateEventPermission(ctx context.Context, perm *domain.EventPermission) error
	DeleteEventPermission(ctx context.Context, eventID int64, id int64) error

	AddEventAttendants(ctx context.Context, eventID int64, userIDs []int64) error
	RemoveEventAttendant(ctx context.Context, eventID int64, userID int64) error
	ReplaceAvailability(ctx context.Context, eventID int64, userID int64, windows []domain.AvailabilityWindow) error

	CreatePosition(ctx context.Context, pos *domain.Position) error
	UpdatePosition(ctx context.Context, pos *domain.Position) error
	AddShifts(ctx context.Context, positionID int64, shifts []domain.Shift) error
	DeleteShift(ctx context.Context, positionID int64, shiftID int64) error

	GetAllShiftTemplates(ctx context.Context) ([]*domain.ShiftTemplate, error)
	GetShiftTemplateByID(ctx context.Context, id int64) (*domain.ShiftTemplate, error)
	CreateShiftTemplate(ctx context.Context, stm *domain.ShiftTemplate) error
	UpdateShiftTemplate(ctx context.Context, stm *domain.ShiftTemplate) error
	DeleteShiftTemplate(ctx context.Context, id int64) error
}

type MailPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Repository
	assignments *assignment.Service
	translator  ut.Translator
	mailer      MailPublisher
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, assignments *assignment.Service, mailer MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		assignments: assignments,
		translator:  trans,
		mailer:      mailer,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.metrics)
	h.Mux.Use(cors.New(cors.Options{
		AllowedOrigins:   h.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	}).Handler)

	h.Mux.Handle("/metrics", promhttp.Handler())

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.actor)

		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/shift-templates", func(r chi.Router) {
			r.Get("/", h.GetAllShiftTemplates)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateShiftTemplate)
			r.Route("/{templateID}", func(r chi.Router) {
				r.Use(h.shiftTemplate)
				r.Get("/", h.GetShiftTemplate)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateShiftTemplate)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteShiftTemplate)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.GetMyEvents)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleOverseer})).Post("/", h.CreateEvent)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Use(h.event)
				r.Get("/", h.GetEvent)
				r.Patch("/", h.UpdateEvent)
				r.Delete("/", h.DeleteEvent)
				r.Get("/my-permission", h.GetMyPermission)

				r.Route("/permissions", func(r chi.Router) {
					r.Get("/", h.GetEventPermissions)
					r.Post("/", h.GrantEventPermission)
					r.Patch("/{permissionID}", h.UpdateEventPermission)
					r.Delete("/{permissionID}", h.RevokeEventPermission)
				})

				r.Route("/attendants", func(r chi.Router) {
					r.Get("/", h.GetEventAttendants)
					r.Post("/", h.AddEventAttendants)
					r.Delete("/{userID}", h.RemoveEventAttendant)
					r.Put("/{userID}/availability", h.SubmitAvailability)
				})

				r.Route("/positions", func(r chi.Router) {
					r.Get("/", h.GetEventPositions)
					r.Post("/", h.CreatePosition)
					r.Post("/apply-shift-template", h.ApplyShiftTemplate)
					r.Route("/{positionID}", func(r chi.Router) {
						r.Use(h.position)
						r.Get("/", h.GetPosition)
						r.Patch("/", h.UpdatePosition)
						r.Delete("/", h.DeactivatePosition)
						r.Get("/shifts", h.GetPositionShifts)
						r.Post("/shifts", h.AddPositionShifts)
						r.Delete("/shifts/{shiftID}", h.DeletePositionShift)
					})
				})

				r.Route("/assignments", func(r chi.Router) {
					r.Get("/", h.ListAssignments)
					r.Post("/", h.CreateAssignment)
					r.Delete("/", h.ClearAssignments)
					r.Get("/stats", h.GetAssignmentStats)
					r.Get("/conflicts", h.CheckAssignmentConflict)
					r.Post("/bulk", h.CreateBulkAssignments)
					r.Post("/auto-assign", h.AutoAssign)
					r.Get("/{assignmentID}", h.GetAssignment)
					r.Put("/{assignmentID}", h.UpdateAssignment)
					r.Delete("/{assignmentID}", h.DeleteAssignment)
				})
			})
		})
	})
}
