package assignment

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/access"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/event-roster/backend/internal/scheduler"
)

type fakeStore struct {
	perms       map[[2]int64]*domain.EventPermission
	events      map[int64]*domain.Event
	positions   map[int64]*domain.Position
	attendants  map[int64][]*domain.EventAttendant
	assignments map[int64]*domain.Assignment
	nextID      int64
	writes      int
	createErr   error
	exclusion   bool // 像数据库的排他约束一样拒绝同一个人时间重叠的安排
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		perms:       make(map[[2]int64]*domain.EventPermission),
		events:      make(map[int64]*domain.Event),
		positions:   make(map[int64]*domain.Position),
		attendants:  make(map[int64][]*domain.EventAttendant),
		assignments: make(map[int64]*domain.Assignment),
	}
}

func (f *fakeStore) GetEventPermission(_ context.Context, eventID int64, userID int64) (*domain.EventPermission, error) {
	perm, ok := f.perms[[2]int64{eventID, userID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return perm, nil
}

func (f *fakeStore) GetEventByID(_ context.Context, id int64) (*domain.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return event, nil
}

func (f *fakeStore) GetPositionByID(_ context.Context, id int64) (*domain.Position, error) {
	pos, ok := f.positions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return pos, nil
}

func (f *fakeStore) GetPositionsByEventID(_ context.Context, eventID int64) ([]*domain.Position, error) {
	positions := make([]*domain.Position, 0)
	for _, pos := range f.positions {
		if pos.EventID == eventID {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].PositionNumber != positions[j].PositionNumber {
			return positions[i].PositionNumber < positions[j].PositionNumber
		}
		return positions[i].ID < positions[j].ID
	})
	return positions, nil
}

func (f *fakeStore) IsEventAttendant(_ context.Context, eventID int64, userID int64) (bool, error) {
	for _, att := range f.attendants[eventID] {
		if att.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetEventAttendants(_ context.Context, eventID int64) ([]*domain.EventAttendant, error) {
	return f.attendants[eventID], nil
}

func (f *fakeStore) GetAssignmentByID(_ context.Context, id int64) (*domain.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) sorted(match func(a *domain.Assignment) bool) []*domain.Assignment {
	result := make([]*domain.Assignment, 0)
	for _, a := range f.assignments {
		if match(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (f *fakeStore) GetAssignmentsByEventID(_ context.Context, eventID int64) ([]*domain.Assignment, error) {
	return f.sorted(func(a *domain.Assignment) bool { return a.EventID == eventID }), nil
}

func (f *fakeStore) GetUserAssignmentsInEvent(_ context.Context, eventID int64, userID int64) ([]*domain.Assignment, error) {
	return f.sorted(func(a *domain.Assignment) bool { return a.EventID == eventID && a.UserID == userID }), nil
}

func (f *fakeStore) ListAssignments(_ context.Context, eventID int64, filter domain.AssignmentFilter) ([]*domain.Assignment, int, error) {
	result := f.sorted(func(a *domain.Assignment) bool {
		if a.EventID != eventID {
			return false
		}
		if filter.Status != nil && a.Status != *filter.Status {
			return false
		}
		if filter.UserID != nil && a.UserID != *filter.UserID {
			return false
		}
		return filter.PositionID == nil || a.PositionID == *filter.PositionID
	})
	return result, len(result), nil
}

func (f *fakeStore) CountAssignmentsByStatus(_ context.Context, eventID int64) (map[domain.AssignmentStatus]int, error) {
	counts := make(map[domain.AssignmentStatus]int)
	for _, a := range f.assignments {
		if a.EventID == eventID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	return f.CreateAssignments(ctx, []*domain.Assignment{a})
}

func (f *fakeStore) CreateAssignments(_ context.Context, as []*domain.Assignment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.exclusion && f.overlaps(as) {
		return &pgconn.PgError{Code: "23P01", ConstraintName: AssignmentOverlapConstraint}
	}
	for _, a := range as {
		f.nextID++
		a.ID = f.nextID
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		a.Version = 1
		cp := *a
		f.assignments[a.ID] = &cp
	}
	f.writes++
	return nil
}

func (f *fakeStore) overlaps(as []*domain.Assignment) bool {
	stored := make([]*domain.Assignment, 0, len(f.assignments)+len(as))
	for _, a := range f.assignments {
		stored = append(stored, a)
	}
	for _, a := range as {
		iv, err := scheduler.NewInterval(a.ShiftStart, a.ShiftEnd)
		if err != nil {
			return true
		}
		same := make([]*domain.Assignment, 0)
		for _, b := range stored {
			if b.EventID == a.EventID && b.UserID == a.UserID {
				same = append(same, b)
			}
		}
		if a.Status.OccupiesTime() && scheduler.HasConflict(same, iv, 0) {
			return true
		}
		stored = append(stored, a)
	}
	return false
}

func (f *fakeStore) UpdateAssignment(_ context.Context, a *domain.Assignment) error {
	if _, ok := f.assignments[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	cp.Version++
	f.assignments[a.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeStore) DeleteAssignment(_ context.Context, id int64) error {
	if _, ok := f.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.assignments, id)
	f.writes++
	return nil
}

func (f *fakeStore) DeleteEventAssignments(_ context.Context, eventID int64) (int64, error) {
	var deleted int64
	for id, a := range f.assignments {
		if a.EventID == eventID && a.Status != domain.AssignmentCompleted {
			delete(f.assignments, id)
			deleted++
		}
	}
	f.writes++
	return deleted, nil
}

type fakeNotifier struct {
	sent []*domain.Assignment
}

func (n *fakeNotifier) NotifyAssignments(_ context.Context, _ int64, assignments []*domain.Assignment) {
	n.sent = append(n.sent, assignments...)
}

const (
	eventID   int64 = 1
	ownerID   int64 = 100
	scopedID  int64 = 101
	keymanID  int64 = 102
	viewerID  int64 = 103
	parkingP1 int64 = 11
	parkingP2 int64 = 12
	stageP3   int64 = 13
)

// fixture: 一个活动，三个岗位（P2 已停用），名单中有 1、2、3 和 keyman
func fixture() *fakeStore {
	f := newFakeStore()
	f.events[eventID] = &domain.Event{ID: eventID, Name: "Regional Convention"}

	department := domain.ScopeDepartment
	f.perms[[2]int64{eventID, ownerID}] = &domain.EventPermission{EventID: eventID, UserID: ownerID, Role: domain.EventRoleOwner}
	f.perms[[2]int64{eventID, scopedID}] = &domain.EventPermission{EventID: eventID, UserID: scopedID, Role: domain.EventRoleOverseer, ScopeType: &department, ScopeIDs: []string{"Parking"}}
	f.perms[[2]int64{eventID, keymanID}] = &domain.EventPermission{EventID: eventID, UserID: keymanID, Role: domain.EventRoleKeyman}
	f.perms[[2]int64{eventID, viewerID}] = &domain.EventPermission{EventID: eventID, UserID: viewerID, Role: domain.EventRoleViewer}

	f.positions[parkingP1] = &domain.Position{ID: parkingP1, EventID: eventID, PositionNumber: 1, Name: "Lot A", Department: "Parking", IsActive: true}
	f.positions[parkingP2] = &domain.Position{ID: parkingP2, EventID: eventID, PositionNumber: 2, Name: "Lot B", Department: "Parking", IsActive: false}
	f.positions[stageP3] = &domain.Position{ID: stageP3, EventID: eventID, PositionNumber: 3, Name: "Stage Door", Department: "Stage", IsActive: true}

	for _, userID := range []int64{1, 2, 3, keymanID} {
		f.attendants[eventID] = append(f.attendants[eventID], &domain.EventAttendant{EventID: eventID, UserID: userID, Role: domain.RoleAttendant})
	}
	return f
}

func (f *fakeStore) seed(a domain.Assignment) *domain.Assignment {
	f.nextID++
	a.ID = f.nextID
	if a.EventID == 0 {
		a.EventID = eventID
	}
	if a.Status == "" {
		a.Status = domain.AssignmentAssigned
	}
	f.assignments[a.ID] = &a
	return &a
}

func resolver(f *fakeStore, userID int64) *access.Resolver {
	return access.NewResolver(f, access.Actor{UserID: userID, Role: domain.RoleAttendant})
}

func ptr[T any](v T) *T {
	return &v
}

func assertCode(t *testing.T, err error, target *domain.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, target), "expected %s, got %v", target.Code, err)
}

func TestCreate_DefaultsToAssigned(t *testing.T) {
	f := fixture()
	n := &fakeNotifier{}
	svc := NewService(f, n, Config{})

	a, err := svc.Create(context.Background(), resolver(f, ownerID), eventID, CreateRequest{
		UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentAssigned, a.Status)
	assert.Equal(t, ownerID, *a.AssignedBy)
	assert.Nil(t, a.BatchID)
	assert.Len(t, f.assignments, 1)
	assert.Len(t, n.sent, 1)
}

func TestCreate_RejectsOverlapButAllowsAdjacent(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})
	rv := resolver(f, ownerID)

	_, err := svc.Create(context.Background(), rv, eventID, CreateRequest{UserID: 1, PositionID: stageP3, ShiftStart: "11:00", ShiftEnd: "13:00"})
	assertCode(t, err, domain.ErrConflictingAssignment)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, 1, domainErr.Details["conflicts"])
	assert.Zero(t, f.writes)

	_, err = svc.Create(context.Background(), rv, eventID, CreateRequest{UserID: 1, PositionID: stageP3, ShiftStart: "12:00", ShiftEnd: "14:00"})
	assert.NoError(t, err)
}

func TestCreate_DeclinedDoesNotOccupyTime(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00", Status: domain.AssignmentDeclined})
	svc := NewService(f, nil, Config{})

	_, err := svc.Create(context.Background(), resolver(f, ownerID), eventID, CreateRequest{UserID: 1, PositionID: stageP3, ShiftStart: "10:00", ShiftEnd: "11:00"})
	assert.NoError(t, err)
}

func TestCreate_ValidationOrder(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})
	rv := resolver(f, ownerID)
	ctx := context.Background()

	_, err := svc.Create(ctx, rv, eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "12:00", ShiftEnd: "12:00"})
	assertCode(t, err, domain.ErrInvalidTime)

	_, err = svc.Create(ctx, rv, eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "25:00", ShiftEnd: "26:00"})
	assertCode(t, err, domain.ErrInvalidTime)

	// 不在名单中的人，无论岗位是否有效都返回 NotAssociated
	_, err = svc.Create(ctx, rv, eventID, CreateRequest{UserID: 99, PositionID: 9999, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrNotAssociated)

	_, err = svc.Create(ctx, rv, eventID, CreateRequest{UserID: 1, PositionID: parkingP2, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrInvalidPosition)

	_, err = svc.Create(ctx, rv, eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00", Status: "MAYBE"})
	assertCode(t, err, domain.ErrInvalidStatus)

	_, err = svc.Create(ctx, rv, eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftID: ptr(int64(77)), ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrInvalidPosition)

	assert.Zero(t, f.writes)
}

func TestCreate_Authorization(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, resolver(f, viewerID), eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrAccessDenied)

	_, err = svc.Create(ctx, resolver(f, keymanID), eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrAccessDenied)

	_, err = svc.Create(ctx, resolver(f, scopedID), eventID, CreateRequest{UserID: 1, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrOutOfScope)

	_, err = svc.Create(ctx, resolver(f, scopedID), eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assert.NoError(t, err)
	assert.Equal(t, 1, f.writes)
}

func TestCreate_ExclusionViolationIsConflict(t *testing.T) {
	f := fixture()
	f.createErr = &pgconn.PgError{Code: "23P01", ConstraintName: AssignmentOverlapConstraint}
	svc := NewService(f, nil, Config{})

	_, err := svc.Create(context.Background(), resolver(f, ownerID), eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrConflictingAssignment)

	f.createErr = errors.New("connection reset")
	_, err = svc.Create(context.Background(), resolver(f, ownerID), eventID, CreateRequest{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"})
	assertCode(t, err, domain.ErrIntegrity)
}

func TestHasConflict(t *testing.T) {
	f := fixture()
	existing := f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})
	ctx := context.Background()

	conflict, err := svc.HasConflict(ctx, eventID, 1, "11:00", "13:00", 0)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = svc.HasConflict(ctx, eventID, 1, "11:00", "13:00", existing.ID)
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = svc.HasConflict(ctx, eventID, 2, "11:00", "13:00", 0)
	require.NoError(t, err)
	assert.False(t, conflict)

	_, err = svc.HasConflict(ctx, eventID, 1, "13:00", "11:00", 0)
	assertCode(t, err, domain.ErrInvalidTime)
}

func TestUpdate_MovingOwnTimeExcludesItself(t *testing.T) {
	f := fixture()
	a := f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})

	updated, err := svc.Update(context.Background(), resolver(f, ownerID), eventID, a.ID, UpdateRequest{
		ShiftStart: ptr("10:00"),
		ShiftEnd:   ptr("13:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.ShiftStart)
	assert.Equal(t, "13:00", updated.ShiftEnd)
}

func TestUpdate_ConflictWithAnotherAssignment(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	other := f.seed(domain.Assignment{UserID: 2, PositionID: stageP3, ShiftStart: "10:00", ShiftEnd: "11:00"})
	svc := NewService(f, nil, Config{})

	_, err := svc.Update(context.Background(), resolver(f, ownerID), eventID, other.ID, UpdateRequest{UserID: ptr(int64(1))})
	assertCode(t, err, domain.ErrConflictingAssignment)

	_, err = svc.Update(context.Background(), resolver(f, ownerID), eventID, other.ID, UpdateRequest{UserID: ptr(int64(99))})
	assertCode(t, err, domain.ErrNotAssociated)
}

func TestUpdate_ReactivatingDeclinedChecksConflicts(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	declined := f.seed(domain.Assignment{UserID: 1, PositionID: stageP3, ShiftStart: "10:00", ShiftEnd: "11:00", Status: domain.AssignmentDeclined})
	svc := NewService(f, nil, Config{})

	_, err := svc.Update(context.Background(), resolver(f, ownerID), eventID, declined.ID, UpdateRequest{Status: ptr(domain.AssignmentConfirmed)})
	assertCode(t, err, domain.ErrConflictingAssignment)
}

func TestUpdate_KeymanMayOnlyTouchOwnStatusAndNotes(t *testing.T) {
	f := fixture()
	own := f.seed(domain.Assignment{UserID: keymanID, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00"})
	others := f.seed(domain.Assignment{UserID: 1, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})
	rv := resolver(f, keymanID)
	ctx := context.Background()

	updated, err := svc.Update(ctx, rv, eventID, own.ID, UpdateRequest{Status: ptr(domain.AssignmentConfirmed), Notes: ptr("on my way")})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentConfirmed, updated.Status)
	assert.Equal(t, "on my way", updated.Notes)

	_, err = svc.Update(ctx, rv, eventID, own.ID, UpdateRequest{ShiftEnd: ptr("13:00")})
	assertCode(t, err, domain.ErrAccessDenied)

	_, err = svc.Update(ctx, rv, eventID, others.ID, UpdateRequest{Status: ptr(domain.AssignmentConfirmed)})
	assertCode(t, err, domain.ErrOutOfScope)
}

func TestUpdate_CompletedIsFrozen(t *testing.T) {
	f := fixture()
	a := f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00", Status: domain.AssignmentCompleted})
	svc := NewService(f, nil, Config{})

	_, err := svc.Update(context.Background(), resolver(f, ownerID), eventID, a.ID, UpdateRequest{Notes: ptr("late")})
	assertCode(t, err, domain.ErrCompletedAssignment)
	assert.Zero(t, f.writes)
}

func TestUpdate_ChangingPositionChecksScope(t *testing.T) {
	f := fixture()
	a := f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})

	_, err := svc.Update(context.Background(), resolver(f, scopedID), eventID, a.ID, UpdateRequest{PositionID: ptr(stageP3)})
	assertCode(t, err, domain.ErrOutOfScope)

	_, err = svc.Update(context.Background(), resolver(f, ownerID), eventID, a.ID, UpdateRequest{PositionID: ptr(parkingP2)})
	assertCode(t, err, domain.ErrInvalidPosition)
}

func TestDelete(t *testing.T) {
	f := fixture()
	done := f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00", Status: domain.AssignmentCompleted})
	open := f.seed(domain.Assignment{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00"})
	svc := NewService(f, nil, Config{})
	ctx := context.Background()

	// 没有权限的调用者看不到安排的状态
	err := svc.Delete(ctx, resolver(f, viewerID), eventID, done.ID)
	assertCode(t, err, domain.ErrAccessDenied)

	err = svc.Delete(ctx, resolver(f, ownerID), eventID, done.ID)
	assertCode(t, err, domain.ErrCompletedAssignment)

	err = svc.Delete(ctx, resolver(f, scopedID), eventID, open.ID)
	assertCode(t, err, domain.ErrOutOfScope)

	err = svc.Delete(ctx, resolver(f, ownerID), eventID, 999)
	assertCode(t, err, domain.ErrAssignmentNotFound)

	require.NoError(t, svc.Delete(ctx, resolver(f, ownerID), eventID, open.ID))
	assert.NotContains(t, f.assignments, open.ID)
	assert.Contains(t, f.assignments, done.ID)
}

func TestCreateBulk_ReportsMissingAssociationsAndPositions(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})

	_, err := svc.CreateBulk(context.Background(), resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"},
		{UserID: 42, PositionID: parkingP2, ShiftStart: "09:00", ShiftEnd: "10:00"},
		{UserID: 41, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "10:00"},
		{UserID: 42, PositionID: 9999, ShiftStart: "11:00", ShiftEnd: "12:00"},
	})
	assertCode(t, err, domain.ErrMissingAssociations)

	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, []int64{41, 42}, domainErr.Details["missingUserIDs"])
	assert.Equal(t, []int64{parkingP2, 9999}, domainErr.Details["invalidPositionIDs"])
	assert.Zero(t, f.writes)

	_, err = svc.CreateBulk(context.Background(), resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP2, ShiftStart: "09:00", ShiftEnd: "10:00"},
	})
	assertCode(t, err, domain.ErrInvalidPositions)
}

func TestCreateBulk_RejectsOverlapsWithinBatch(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})

	_, err := svc.CreateBulk(context.Background(), resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"},
		{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00"},
		{UserID: 1, PositionID: stageP3, ShiftStart: "11:00", ShiftEnd: "13:00"},
	})
	assertCode(t, err, domain.ErrConflictingAssignment)

	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, []BatchConflict{{Index: 2, UserID: 1}}, domainErr.Details["conflicts"])
	assert.Empty(t, f.assignments)
}

func TestCreateBulk_RejectsOverlapsWithExisting(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 2, PositionID: parkingP1, ShiftStart: "08:00", ShiftEnd: "09:30"})
	svc := NewService(f, nil, Config{})

	_, err := svc.CreateBulk(context.Background(), resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"},
		{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00"},
	})
	assertCode(t, err, domain.ErrConflictingAssignment)
	assert.Len(t, f.assignments, 1)
}

func TestCreateBulk_ScopeAndTimeChecks(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})
	ctx := context.Background()

	_, err := svc.CreateBulk(ctx, resolver(f, scopedID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"},
		{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "10:00"},
	})
	assertCode(t, err, domain.ErrOutOfScope)

	_, err = svc.CreateBulk(ctx, resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "10:00"},
		{UserID: 2, PositionID: stageP3, ShiftStart: "10:00", ShiftEnd: "09:00"},
	})
	assertCode(t, err, domain.ErrInvalidTime)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, 1, domainErr.Details["index"])

	assert.Zero(t, f.writes)
}

func TestCreateBulk_SharesBatchID(t *testing.T) {
	f := fixture()
	n := &fakeNotifier{}
	svc := NewService(f, n, Config{})

	result, err := svc.CreateBulk(context.Background(), resolver(f, ownerID), eventID, []CreateRequest{
		{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"},
		{UserID: 1, PositionID: stageP3, ShiftStart: "12:00", ShiftEnd: "14:00"},
		{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00", Status: domain.AssignmentConfirmed},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.NotEmpty(t, result.BatchID)
	for _, a := range result.Assignments {
		require.NotNil(t, a.BatchID)
		assert.Equal(t, result.BatchID, *a.BatchID)
	}
	assert.Equal(t, domain.AssignmentConfirmed, result.Assignments[2].Status)
	assert.Equal(t, 1, f.writes, "batch is written in one transaction")
	assert.Len(t, n.sent, 3)
}

func TestAutoAssign_OnePositionPerPerson(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})
	// 只保留三个人和三个启用的岗位
	f.attendants[eventID] = f.attendants[eventID][:3]
	f.positions[parkingP2].IsActive = true

	result, err := svc.AutoAssign(context.Background(), resolver(f, ownerID), eventID, scheduler.Options{MaxAssignmentsPerPerson: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, result.AssignmentsCreated)
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1}, result.WorkloadDistribution)
	assert.Empty(t, result.SkippedPositionIDs)

	people := make([]int64, 0, 3)
	for _, a := range result.Assignments {
		assert.Equal(t, "Auto-assigned by system", a.Notes)
		assert.Equal(t, domain.AssignmentAssigned, a.Status)
		assert.Equal(t, "09:00", a.ShiftStart)
		assert.Equal(t, "17:00", a.ShiftEnd)
		require.NotNil(t, a.BatchID)
		assert.Equal(t, result.BatchID, *a.BatchID)
		people = append(people, a.UserID)
	}
	slices.Sort(people)
	assert.Equal(t, []int64{1, 2, 3}, people)
}

func TestAutoAssign_UsesShiftThenEventHours(t *testing.T) {
	f := fixture()
	start, end := "07:50", "10:00"
	f.positions[parkingP1].Shifts = []domain.Shift{{ID: 5, PositionID: parkingP1, Name: "Morning", StartTime: &start, EndTime: &end, Sequence: 1}}
	f.events[eventID].StartTime = ptr("08:00")
	f.events[eventID].EndTime = ptr("16:00")
	svc := NewService(f, nil, Config{})

	result, err := svc.AutoAssign(context.Background(), resolver(f, ownerID), eventID, scheduler.Options{})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)

	byPosition := make(map[int64]*domain.Assignment)
	for _, a := range result.Assignments {
		byPosition[a.PositionID] = a
	}
	assert.Equal(t, "07:50", byPosition[parkingP1].ShiftStart)
	assert.Equal(t, int64(5), *byPosition[parkingP1].ShiftID)
	assert.Equal(t, "08:00", byPosition[stageP3].ShiftStart)
	assert.Equal(t, "16:00", byPosition[stageP3].ShiftEnd)
}

func TestAutoAssign_OverlappingShiftsOptionNeverProducesConflicts(t *testing.T) {
	f := fixture()
	f.exclusion = true
	// 一个人，两个使用默认时间的岗位
	f.attendants[eventID] = f.attendants[eventID][:1]
	svc := NewService(f, nil, Config{})

	result, err := svc.AutoAssign(context.Background(), resolver(f, ownerID), eventID, scheduler.Options{AllowOverlappingShifts: true})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, parkingP1, result.Assignments[0].PositionID)
	assert.Equal(t, []int64{stageP3}, result.SkippedPositionIDs)
	assert.Len(t, f.assignments, 1)
}

func TestAutoAssign_SkipsStaffedPositions(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "17:00"})
	f.seed(domain.Assignment{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "17:00", Status: domain.AssignmentDeclined})
	svc := NewService(f, nil, Config{})

	result, err := svc.AutoAssign(context.Background(), resolver(f, ownerID), eventID, scheduler.Options{})
	require.NoError(t, err)

	// 只有拒绝记录的 P3 仍然需要分配，P1 的人已经被占用
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, stageP3, result.Assignments[0].PositionID)
	assert.NotEqual(t, int64(1), result.Assignments[0].UserID)
}

func TestAutoAssign_NoResults(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "17:00"})
	f.seed(domain.Assignment{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "17:00"})
	svc := NewService(f, nil, Config{})

	_, err := svc.AutoAssign(context.Background(), resolver(f, ownerID), eventID, scheduler.Options{})
	assertCode(t, err, domain.ErrNoUnassignedPositions)

	empty := fixture()
	empty.attendants[eventID] = nil
	_, err = NewService(empty, nil, Config{}).AutoAssign(context.Background(), resolver(empty, ownerID), eventID, scheduler.Options{})
	assertCode(t, err, domain.ErrNoEligiblePeople)
	assert.Zero(t, empty.writes)
}

func TestAutoAssign_RequiresUnscopedOverseer(t *testing.T) {
	f := fixture()
	svc := NewService(f, nil, Config{})

	_, err := svc.AutoAssign(context.Background(), resolver(f, scopedID), eventID, scheduler.Options{})
	assertCode(t, err, domain.ErrOutOfScope)

	_, err = svc.AutoAssign(context.Background(), resolver(f, keymanID), eventID, scheduler.Options{})
	assertCode(t, err, domain.ErrAccessDenied)
	assert.Zero(t, f.writes)
}

func TestReadsAndClear(t *testing.T) {
	f := fixture()
	f.seed(domain.Assignment{UserID: 1, PositionID: parkingP1, ShiftStart: "09:00", ShiftEnd: "12:00"})
	f.seed(domain.Assignment{UserID: 2, PositionID: stageP3, ShiftStart: "09:00", ShiftEnd: "12:00", Status: domain.AssignmentCompleted})
	svc := NewService(f, nil, Config{})
	ctx := context.Background()

	list, err := svc.List(ctx, resolver(f, viewerID), eventID, domain.AssignmentFilter{UserID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	stats, err := svc.Stats(ctx, resolver(f, viewerID), eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[domain.AssignmentCompleted])
	assert.Equal(t, 0, stats.ByStatus[domain.AssignmentNoShow])

	_, err = svc.ClearEvent(ctx, resolver(f, scopedID), eventID)
	assertCode(t, err, domain.ErrAccessDenied)

	deleted, err := svc.ClearEvent(ctx, resolver(f, ownerID), eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, f.assignments, 1)
}
