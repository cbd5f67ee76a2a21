package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// 大多数人是普通志愿者
var roles = []domain.Role{
	domain.RoleAttendant,
	domain.RoleAttendant,
	domain.RoleAttendant,
	domain.RoleKeyman,
	domain.RoleOverseer,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
		IsActive:     true,
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var departments = []string{"Parking", "Attendants", "First Aid", "Sound", "Cleaning", "Information"}

// GenerateRandomEvent 生成一个从一周后开始、持续 1~3 天的活动
func GenerateRandomEvent(createdBy int64) *domain.Event {
	start := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	startTime, endTime := "08:00", "17:00"

	return &domain.Event{
		Name:        "活动" + GenerateRandomID(3, 3),
		Description: "活动描述" + GenerateRandomID(20, 10),
		Location:    "会场" + GenerateRandomID(2, 2),
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, rand.Intn(3)),
		StartTime:   &startTime,
		EndTime:     &endTime,
		CreatedBy:   createdBy,
	}
}

// GenerateRandomPositions 生成 n 个编号连续的岗位，随机分布在几个部门中
func GenerateRandomPositions(eventID int64, n int) []*domain.Position {
	positions := make([]*domain.Position, n)
	for i := range positions {
		department := departments[rand.Intn(len(departments))]
		positions[i] = &domain.Position{
			EventID:        eventID,
			PositionNumber: int32(i + 1),
			Name:           fmt.Sprintf("%s %d", department, i+1),
			Department:     department,
			IsActive:       true,
		}
	}
	return positions
}

// GenerateRandomAvailability 生成一段落在 [06:00, 21:00) 之内、至少两小时的空闲时间
func GenerateRandomAvailability() []domain.AvailabilityWindow {
	startHour := rand.Intn(8) + 6 // 6~13
	endHour := startHour + 2 + rand.Intn(20-startHour)

	return []domain.AvailabilityWindow{
		{Start: fmt.Sprintf("%02d:00", startHour), End: fmt.Sprintf("%02d:00", endHour)},
	}
}
