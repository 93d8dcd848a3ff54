package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 面板用户表
// 记录用户的余额，是整个面板资金流转的核心数据
//
// 【重要】余额字段只允许通过台账（ledger）的条件更新修改，
// 任何地方都不允许直接覆盖写 balance
type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UID         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"uid"` // 用户ID，由认证方分配
	FullName    string    `gorm:"type:varchar(128);not null" json:"full_name"`
	Email       string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Balance     float64   `gorm:"type:decimal(15,4);not null;default:0" json:"balance"` // 可用余额，任何时刻 >= 0
	Version     int       `gorm:"not null;default:0" json:"version"`                    // 乐观锁版本号
	Role        string    `gorm:"type:varchar(16);not null;default:user" json:"role"`   // user | admin
	ReferrerUID string    `gorm:"type:varchar(64)" json:"referrer_uid"`                 // 推荐人UID，可为空
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 是否持有管理员能力
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRecord 登录记录表，只追加
type LoginRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UID       string    `gorm:"type:varchar(64);index;not null" json:"uid"`
	Email     string    `gorm:"type:varchar(128);not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LoginRecord) TableName() string {
	return "login_record"
}
