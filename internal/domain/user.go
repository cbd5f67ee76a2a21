package domain

import (
	"time"
)

// Role 是用户的全局角色，与某个活动内的 EventRole 无关
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOverseer  Role = "OVERSEER"
	RoleKeyman    Role = "KEYMAN"
	RoleAttendant Role = "ATTENDANT"
)

// IsSenior 表示该角色是否属于资深人员，自动排班在 experience 模式下会优先考虑这些人
func (r Role) IsSenior() bool {
	switch r {
	case RoleAdmin, RoleOverseer, RoleKeyman:
		return true
	default:
		return false
	}
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
