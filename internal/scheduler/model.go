package scheduler

type OptimizeFor string

const (
	OptimizeWorkload     OptimizeFor = "workload"
	OptimizeExperience   OptimizeFor = "experience"
	OptimizeAvailability OptimizeFor = "availability"
)

// 自动排班参数
type Options struct {
	OptimizeFor             OptimizeFor
	MaxAssignmentsPerPerson int  // 每人最多分配的岗位数，0 表示不限制
	PreferredSkillMatch     bool // 优先把岗位分给被指定为该岗位 keyman 的人
	AllowOverlappingShifts  bool // 只为兼容请求格式保留，排班时不会生效
}

// Person: 人员池中的一个人
type Person struct {
	UserID       int64
	Senior       bool
	Availability []Interval // 此人声明的空闲时间，为空表示没有声明
	Busy         []Interval // 此人在活动中已有安排占用的时间
}

// Slot: 一个待分配的岗位
type Slot struct {
	PositionID     int64
	PositionNumber int32
	KeymanID       *int64
	ShiftID        *int64
	Hours          Interval
}

// Snapshot: 排班开始时的人员和岗位，排班过程中不会被修改
type Snapshot struct {
	People []Person
	Slots  []Slot
}

type PlannedAssignment struct {
	PositionID int64
	UserID     int64
	ShiftID    *int64
	Hours      Interval
}

// Plan: 排班结果，在持久化之前生成
type Plan struct {
	Assignments        []PlannedAssignment
	Workload           map[int64]int // userID -> 本次分配的岗位数
	SkippedPositionIDs []int64       // 没有合适人选而被跳过的岗位
}
